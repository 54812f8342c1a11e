package registry

import (
	"context"

	"github.com/sells-group/websearch/internal/provider"
	"github.com/sells-group/websearch/internal/search"
)

// SearchFunc is the signature shared by the named engine functions.
type SearchFunc func(ctx context.Context, query string, opts ...search.Option) search.Results

func builtin(name string) SearchFunc {
	return func(ctx context.Context, query string, opts ...search.Option) search.Results {
		e, err := Default().Get(name)
		if err != nil {
			// Built-ins are always present; Merge never removes a name.
			panic(err)
		}
		return e.Search(ctx, query, opts...)
	}
}

// The built-in engines, searched through the default registry.
var (
	Ask    = builtin(provider.Ask)
	Dmoz   = builtin(provider.Dmoz)
	Excite = builtin(provider.Excite)
	Google = builtin(provider.Google)
	MSN    = builtin(provider.MSN)
	Yahoo  = builtin(provider.Yahoo)
)
