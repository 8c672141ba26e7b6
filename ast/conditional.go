package ast

// If renders Child when Test evaluates truthy.
type If struct {
	Test  string
	Child Node
}

func (n If) Render(rc *RenderContext) error {
	ok, err := testExpr(rc, n.Test)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return n.Child.Render(rc)
}

// When is a Choose branch sharing If's shape.
type When = If

// Choose renders the first When whose test is truthy, falling back to
// Otherwise if none match and it is present.
type Choose struct {
	Whens     []When
	Otherwise Node // nil if absent
}

func (n Choose) Render(rc *RenderContext) error {
	for _, when := range n.Whens {
		ok, err := testExpr(rc, when.Test)
		if err != nil {
			return err
		}
		if ok {
			return when.Child.Render(rc)
		}
	}
	if n.Otherwise != nil {
		return n.Otherwise.Render(rc)
	}
	return nil
}

func testExpr(rc *RenderContext, test string) (bool, error) {
	expr, err := compileCache(test)
	if err != nil {
		return false, err
	}
	return expr.Test(rc.Ctx)
}
