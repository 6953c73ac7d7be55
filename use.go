package native

// Use creates a function to bind and use a symbol on the fly.
func Use[T any](h Handle, name string) func(func(t T, err error)) {
	return func(f func(t T, err error)) {
		var x T
		err := Bind(&x, h, name)
		f(x, err)
	}
}
