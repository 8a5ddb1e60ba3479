// Package views renders the storefront pages from embedded templates.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/utils"
)

//go:embed templates/*.html
var files embed.FS

// Layout is the template every page renders through.
const Layout = "layout"

// Engine is a fiber.Views implementation over a template cache. Each page
// is parsed together with the layout and the shared partials.
type Engine struct {
	mu    sync.RWMutex
	fs    fs.FS
	cache map[string]*template.Template
	funcs template.FuncMap
}

// New returns an engine over the embedded templates.
func New() *Engine {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	return NewFromFS(sub)
}

// NewFromFS returns an engine reading templates from fsys.
func NewFromFS(fsys fs.FS) *Engine {
	e := &Engine{
		fs:    fsys,
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
	}
	e.funcs["vnd"] = utils.FormatVNDFloat
	e.funcs["vndDec"] = utils.FormatVND
	e.funcs["add"] = func(a, b int) int { return a + b }
	e.funcs["sub"] = func(a, b int) int { return a - b }
	e.funcs["mul"] = func(price float64, qty int) float64 { return price * float64(qty) }
	e.funcs["discount"] = func(price, selling float64) int {
		if price <= 0 || selling >= price {
			return 0
		}
		return int((price - selling) / price * 100)
	}
	e.funcs["has"] = func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	}
	e.funcs["decimal"] = func(d decimal.Decimal) string { return d.String() }
	e.funcs["dict"] = dict
	e.funcs["imageURL"] = imageURL
	e.funcs["upper"] = strings.ToUpper
	return e
}

// AddFunc registers a template function. Call before Load.
func (e *Engine) AddFunc(name string, fn interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[name] = fn
}

// Load parses every page. Files starting with "_" are partials shared by
// all pages; layout.html wraps them.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	names, err := fs.Glob(e.fs, "*.html")
	if err != nil {
		return err
	}

	shared := []string{Layout + ".html"}
	var pages []string
	for _, n := range names {
		switch {
		case n == Layout+".html":
		case strings.HasPrefix(n, "_"):
			shared = append(shared, n)
		default:
			pages = append(pages, n)
		}
	}

	cache := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		name := strings.TrimSuffix(path.Base(p), ".html")
		tmpl, err := template.New(name).Funcs(e.funcs).ParseFS(e.fs, append(shared, p)...)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", p, err)
		}
		cache[name] = tmpl
	}
	e.cache = cache
	return nil
}

// Render executes page name through the layout. An explicit empty layout
// renders the page's "content" block alone.
func (e *Engine) Render(w io.Writer, name string, binding interface{}, layout ...string) error {
	e.mu.RLock()
	tmpl, ok := e.cache[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	entry := Layout
	if len(layout) > 0 {
		entry = layout[0]
		if entry == "" {
			entry = "content"
		}
	}
	return tmpl.ExecuteTemplate(w, entry, binding)
}

// dict builds a map from alternating keys and values, for passing several
// values to a partial.
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// imageURL lets inline data images through the URL sanitizer. Anything but
// data:image and http(s) URLs is dropped.
func imageURL(s string) template.URL {
	if strings.HasPrefix(s, "data:image/") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		return template.URL(s)
	}
	return ""
}
