package source

import (
	xerrors "github.com/jacoelho/modelc/errors"
)

// Set is the union of several documents.
type Set struct {
	Models    *Map
	Endpoints *Map
	// Origins maps each model and endpoint name to the document defining it.
	Origins map[string]string
}

// Merge combines documents in order. A name defined twice is reported and the
// first definition is kept.
func Merge(docs ...*Document) (*Set, *xerrors.Report) {
	set := &Set{Models: NewMap(), Endpoints: NewMap(), Origins: make(map[string]string)}
	report := &xerrors.Report{}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		for name, raw := range doc.Models.All() {
			if _, dup := set.Models.Get(name); dup {
				report.Errorf(xerrors.ErrDuplicateModel, name, "models."+name,
					"model %s defined in %s and %s", name, set.Origins["models."+name], doc.Origin)
				continue
			}
			set.Models.Set(name, raw)
			set.Origins["models."+name] = doc.Origin
		}
		for name, raw := range doc.Endpoints.All() {
			if _, dup := set.Endpoints.Get(name); dup {
				report.Errorf(xerrors.ErrDuplicateEndpoint, "", "endpoints."+name,
					"endpoint %s defined in %s and %s", name, set.Origins["endpoints."+name], doc.Origin)
				continue
			}
			set.Endpoints.Set(name, raw)
			set.Origins["endpoints."+name] = doc.Origin
		}
	}
	return set, report
}
