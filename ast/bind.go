package ast

// Bind evaluates Expr and assigns the result to Name in the current scope,
// making it available to every node rendered afterward, including a
// sibling ForEach's Collection.
type Bind struct {
	Name string
	Expr string
}

func (n Bind) Render(rc *RenderContext) error {
	expr, err := compileCache(n.Expr)
	if err != nil {
		return err
	}
	v, err := expr.Eval(rc.Ctx)
	if err != nil {
		return err
	}
	rc.Ctx.Bind(n.Name, v)
	return nil
}

// Include renders Target in place. The reference is resolved to a concrete
// Node at load time, so rendering an Include is just rendering its target — no lookup
// happens per invocation.
type Include struct {
	Target Node
}

func (n Include) Render(rc *RenderContext) error {
	return n.Target.Render(rc)
}
