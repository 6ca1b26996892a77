package vm

// Object is an instance of a loaded class. Instances have no fields; the
// receiver only carries its class name.
type Object struct {
	ClassName string
}

// NewObject creates an instance of the named class.
func NewObject(className string) *Object {
	return &Object{ClassName: className}
}
