package rule

import "github.com/jward/draftlint/internal/syntax"

// ClassifyCall reports whether call invokes the target helper with a
// function literal as its second argument and, if so, returns the frame
// the call opens. The frame's handle is the callback's first parameter
// when that parameter is a simple name.
func ClassifyCall(f *syntax.File, call *syntax.Call, gate Gate) (Frame, bool) {
	callee, ok := call.Callee.(*syntax.Identifier)
	if !ok || !gate.IsTarget(callee.Name) {
		return Frame{}, false
	}
	if len(call.Args) < 2 {
		return Frame{}, false
	}
	fn, ok := f.View(call.Args[1]).(*syntax.Function)
	if !ok {
		return Frame{}, false
	}

	frame := Frame{Opening: syntax.KeyOf(call.Node())}
	if len(fn.Params) > 0 {
		if name, ok := f.BoundName(fn.Params[0]); ok {
			frame.Handle = name
		}
	}
	return frame, true
}
