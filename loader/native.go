package loader

import (
	"fmt"
	"plugin"

	mongobridge "github.com/wippyai/mongo-bridge"
)

// nativeModule is an engine built as a Go plugin.
type nativeModule struct {
	command func(control, payload []byte) []byte
}

func (n *nativeModule) Dispatch(control, payload []byte) ([]byte, error) {
	return n.command(control, payload), nil
}

// openNative opens a Go plugin and registers onComplete as its async
// handler. Symbols may be exported as functions or as function variables.
func openNative(path string, onComplete func([]byte)) (*nativeModule, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	cmdSym, err := p.Lookup(mongobridge.SymbolCommand)
	if err != nil {
		return nil, err
	}
	var command func(control, payload []byte) []byte
	switch fn := cmdSym.(type) {
	case func(control, payload []byte) []byte:
		command = fn
	case *func(control, payload []byte) []byte:
		command = *fn
	default:
		return nil, fmt.Errorf("symbol %s has type %T", mongobridge.SymbolCommand, cmdSym)
	}

	handlerSym, err := p.Lookup(mongobridge.SymbolAsyncHandler)
	if err != nil {
		return nil, err
	}
	switch fn := handlerSym.(type) {
	case func(func([]byte)):
		fn(onComplete)
	case *func(func([]byte)):
		(*fn)(onComplete)
	default:
		return nil, fmt.Errorf("symbol %s has type %T", mongobridge.SymbolAsyncHandler, handlerSym)
	}

	return &nativeModule{command: command}, nil
}
