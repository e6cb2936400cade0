package model

// Decorator adjusts a resolved product before it reaches the form, for
// example to sanitise resolver supplied display text.
type Decorator interface {
	Decorate(*NetworkProduct) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*NetworkProduct) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(product *NetworkProduct) error {
	return fn(product)
}

// Decorate runs every decorator in order, stopping at the first error.
// Nil decorators are skipped.
func Decorate(product *NetworkProduct, decorators ...Decorator) error {
	if product == nil {
		return nil
	}
	for _, decorator := range decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(product); err != nil {
			return err
		}
	}
	return nil
}
