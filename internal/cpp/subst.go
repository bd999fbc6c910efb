package cpp

import (
	"github.com/gorse-io/goatc/internal/container"
	"github.com/gorse-io/goatc/internal/token"
)

// subst expands macro's body against args, implementing C11 6.10.3.1's
// parameter substitution together with #, ## and placemarker handling.
// Grounded token-for-token on 8cc's subst() in cpp.c: the index arithmetic
// below (an extra i++ inside a case, stacked on top of the for loop's own
// increment) reproduces its "consume one extra token" idiom exactly, most
// visibly in the t0Param-before-## case, where leaving the ## unconsumed
// lets the *next* iteration treat it as an ordinary glue against whatever
// follows.
func (p *Preprocessor) subst(macro *Macro, args [][]*token.Token, hideset *container.Hideset) ([]*token.Token, error) {
	var r []*token.Token
	body := macro.Body
	for i := 0; i < len(body); i++ {
		islast := i == len(body)-1
		t0 := body[i]
		var t1 *token.Token
		if !islast {
			t1 = body[i+1]
		}
		t0Param := t0.Kind == token.MacroParam
		t1Param := !islast && t1.Kind == token.MacroParam

		if t0.Is('#') && t1Param {
			s, err := stringize(t0, args[t1.ParamIndex])
			if err != nil {
				return nil, err
			}
			r = append(r, s)
			i++
			continue
		}
		if t0.Is(token.PuncHashHash) && t1Param {
			arg := args[t1.ParamIndex]
			if len(arg) > 0 {
				if err := gluePush(&r, arg[0]); err != nil {
					return nil, err
				}
				rest, err := p.expandAll(arg[1:])
				if err != nil {
					return nil, err
				}
				r = append(r, rest...)
			}
			i++
			continue
		}
		if t0.Is(token.PuncHashHash) && !islast {
			hideset = t1.Hideset
			if err := gluePush(&r, t1); err != nil {
				return nil, err
			}
			i++
			continue
		}
		if t0Param && !islast && t1.Is(token.PuncHashHash) {
			hideset = t1.Hideset
			arg := args[t0.ParamIndex]
			if len(arg) == 0 {
				i++
			} else {
				r = append(r, arg...)
			}
			continue
		}
		if t0Param {
			arg := args[t0.ParamIndex]
			expanded, err := p.expandAll(arg)
			if err != nil {
				return nil, err
			}
			r = append(r, expanded...)
			continue
		}
		r = append(r, t0)
	}
	return addHideSet(r, hideset), nil
}
