package proxy_test

import (
	"errors"
	"fmt"

	"keyproxy/pkg/introspect"
	"keyproxy/pkg/proxy"
	"keyproxy/pkg/target"
)

type Article struct {
	Title string `proxy:"title"`
	Body  *string
}

func (a *Article) Summary() string { return "about " + a.Title }

func ExampleNew_container() {
	data := target.NewMap().
		Put(proxy.StringKey("foo"), 1).
		Put(proxy.StringKey("zod"), target.NewMap().Put(proxy.StringKey("baz"), "qux"))

	p, _ := proxy.New(data)
	fmt.Println(p.Keys())

	zod, _ := p.Nested(proxy.StringKey("zod"))
	_ = zod.Set(proxy.StringKey("baz"), "new")
	inner, _ := data.Lookup(proxy.StringKey("zod"))
	baz, _ := inner.(*target.Map).Lookup(proxy.StringKey("baz"))
	fmt.Println(baz)
	// Output:
	// [foo zod]
	// new
}

func ExampleNew_record() {
	p, _ := proxy.New(&Article{Title: "go"})
	fmt.Println(p.Keys())

	summary, _ := p.Get(proxy.MethodKey("Summary"))
	fmt.Println(summary)

	initialised, _ := p.IsInitialised(proxy.StringKey("Body"))
	fmt.Println(initialised)

	err := p.Create(proxy.StringKey("tags"), []string{"x"})
	fmt.Println(errors.Is(err, proxy.ErrUnsupportedOperation))
	// Output:
	// [title Body Summary()]
	// about go
	// false
	// true
}

func ExampleProxy_Ensure() {
	obj := introspect.NewObject()
	p, _ := proxy.New(obj)

	meta, _ := p.Ensure(proxy.StringKey("meta"))
	_ = meta.Create(proxy.StringKey("owner"), "ops")

	owner, _ := p.Nested(proxy.StringKey("meta"))
	v, _ := owner.Get(proxy.StringKey("owner"))
	fmt.Println(p.DynamicKeysAllowed(), v)
	// Output:
	// true ops
}
