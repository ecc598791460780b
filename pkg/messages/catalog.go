package messages

import (
	_ "embed"
	"fmt"
	"github.com/magiconair/properties"
	"sort"
	"strings"
)

//go:embed messages.properties
var defaultMessages string

type Catalog struct {
	props *properties.Properties
}

func NewDefaultCatalog() *Catalog {
	return &Catalog{props: properties.MustLoadString(defaultMessages)}
}

// LoadCatalog overlays the messages from path on top of the embedded defaults.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := NewDefaultCatalog()
	if path == "" {
		return catalog, nil
	}
	overrides, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("Loading messages file error. Reason: %w", err)
	}
	catalog.props.Merge(overrides)
	return catalog, nil
}

func (catalog *Catalog) Get(key string) string {
	if value, found := catalog.props.Get(key); found {
		return value
	}
	return key
}

// ForStatus resolves "<operation>.<status>", then "<operation>.default".
func (catalog *Catalog) ForStatus(operation string, status int) string {
	if value, found := catalog.props.Get(fmt.Sprintf("%v.%v", operation, status)); found {
		return value
	}
	return catalog.Get(operation + ".default")
}

// Format fills the {name} placeholders of the message in a single pass.
// Substituted values are never scanned for placeholders again.
func (catalog *Catalog) Format(key string, args map[string]string) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", args[name])
	}
	return strings.NewReplacer(pairs...).Replace(catalog.Get(key))
}
