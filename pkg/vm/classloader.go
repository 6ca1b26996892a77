package vm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/daimatz/minijvm/pkg/classfile"
	jvmerrors "github.com/daimatz/minijvm/pkg/errors"
)

// ClassLoader loads .class files by class name.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// DirLoader loads classes from a single class path directory. A class
// named a/b/C is read from <ClassPath>/a/b/C.class. Loaded classes are
// cached; DirLoader is safe for concurrent use.
type DirLoader struct {
	ClassPath string

	mu    sync.Mutex
	cache map[string]*classfile.ClassFile
}

// NewDirLoader creates a DirLoader rooted at classPath.
func NewDirLoader(classPath string) *DirLoader {
	return &DirLoader{
		ClassPath: classPath,
		cache:     make(map[string]*classfile.ClassFile),
	}
}

func (l *DirLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cf, ok := l.cache[name]; ok {
		return cf, nil
	}

	path := filepath.Join(l.ClassPath, filepath.FromSlash(name)+".class")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, jvmerrors.NotFound(name, err)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	got, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if got != name {
		return nil, jvmerrors.NotFound(name, fmt.Errorf("%s declares class %s", path, got))
	}

	Logger().Debug("loaded class", zap.String("class", name), zap.String("path", path))
	l.cache[name] = cf
	return cf, nil
}
