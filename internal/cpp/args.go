package cpp

import "github.com/gorse-io/goatc/internal/token"

// readArgsInt scans a function-like macro's parenthesized argument list,
// splitting on top-level commas (nested parens are tracked in depth), and
// collapsing everything from the variadic parameter on into one argument.
// Returns ok=false if no '(' follows (not a macro invocation), per 8cc's
// read_args_int.
func (p *Preprocessor) readArgsInt(macro *Macro) ([][]*token.Token, bool, error) {
	tok, err := p.readCppToken()
	if err != nil {
		return nil, false, err
	}
	if !tok.Is('(') {
		p.unget(tok)
		return nil, false, nil
	}
	var result [][]*token.Token
	var arg []*token.Token
	depth := 0
	for {
		tok, err = p.readCppToken()
		if err != nil {
			return nil, false, err
		}
		if tok.Kind == token.EOF {
			return nil, false, p.errf(tok, "unterminated macro argument list")
		}
		if tok.Kind == token.Newline {
			continue
		}
		if tok.Is('(') {
			depth++
		} else if depth > 0 {
			if tok.Is(')') {
				depth--
			}
			arg = append(arg, tok)
			continue
		}
		if tok.Is(')') {
			p.unget(tok)
			result = append(result, arg)
			return result, true, nil
		}
		inThreedots := macro.Variadic && len(result)+1 == macro.NArgs
		if tok.Is(',') && !inThreedots {
			result = append(result, arg)
			arg = nil
			continue
		}
		arg = append(arg, tok)
	}
}

// readArgs wraps readArgsInt with arity validation, per 8cc's read_args.
func (p *Preprocessor) readArgs(macro *Macro) ([][]*token.Token, bool, error) {
	args, ok, err := p.readArgsInt(macro)
	if err != nil || !ok {
		return nil, ok, err
	}
	if macro.Variadic && len(args) < macro.NArgs {
		return nil, false, p.errf(p.here(), "macro argument count less than expected")
	}
	if !macro.Variadic && len(args) != macro.NArgs {
		if macro.NArgs == 0 && len(args) == 1 && len(args[0]) == 0 {
			return nil, true, nil
		}
		return nil, false, p.errf(p.here(), "macro argument count does not match")
	}
	return args, true, nil
}
