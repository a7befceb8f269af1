// Package translate orchestrates one translation request end to end:
// load and parse the source tree, resolve the class table, flatten the root
// class, build the DAE, and project it into the serializable document. It
// owns exactly one Logger, one ClassTable, and one flatten.Builder per
// request: concurrent translations each create their own Translator.
package translate

import (
	"github.com/mhcho1994/rumoca/dae"
	"github.com/mhcho1994/rumoca/flatten"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/mods"
	"github.com/mhcho1994/rumoca/serialize"
)

// Translator is the high-level driver of one translation request.
type Translator struct {
	logger *logging.Logger
	loader *mods.Loader

	// searchRoots is the MODELICAPATH-derived directory list used to locate
	// imported packages that are not part of the primary source tree.
	searchRoots []string

	// showPhases controls the per-phase progress display; the CLI enables it
	// at the verbose log level, library callers leave it off.
	showPhases bool
}

// Result carries everything a translation produced: the intermediate
// representations (for library callers such as analysis tools) and the
// serialized document (for the CLI's output surface).
type Result struct {
	Flat     *flatten.FlatClass
	Dae      *dae.Dae
	Document *serialize.Document
}

// New creates a Translator logging through logger.
func New(logger *logging.Logger) *Translator {
	return &Translator{logger: logger, loader: mods.NewLoader(logger)}
}

// SetSearchRoots supplies the MODELICAPATH search list used to satisfy
// imports of packages outside the primary source tree.
func (t *Translator) SetSearchRoots(roots []string) {
	t.searchRoots = roots
}

// SetShowPhases toggles the phase progress display.
func (t *Translator) SetShowPhases(show bool) {
	t.showPhases = show
}

// Logger returns the Translator's logger, for callers that need to replay
// diagnostics after translation.
func (t *Translator) Logger() *logging.Logger {
	return t.logger
}

// Prefetch concurrently parses the .mo files under root ahead of Translate
//; it is optional and purely a warm-up.
func (t *Translator) Prefetch(root string) {
	t.loader.Prefetch(root)
}

func (t *Translator) beginPhase(name string) {
	if t.showPhases {
		logging.DisplayBeginPhase(name)
	}
}

func (t *Translator) endPhase(success bool) {
	if t.showPhases {
		logging.DisplayEndPhase(success)
	}
}

// Translate runs the full pipeline: sourcePath (a .mo file or a package
// directory) plus includes are loaded into the class table, rootClass is
// flattened, and the DAE is built and serialized. When rootClass is empty the
// last name registered in the class table (after includes and imported
// packages are loaded) is used; for a single source file with neither, that
// is the file's last class, matching the convention that a file's main model
// comes last.
func (t *Translator) Translate(sourcePath, rootClass string, includes []string) (*Result, bool) {
	t.beginPhase("Parsing")
	ok := t.loader.Load(sourcePath)
	for _, inc := range includes {
		ok = t.loader.LoadInclude(inc) && ok
	}
	t.endPhase(ok)
	if !ok {
		return nil, false
	}

	table := t.loader.Table()
	t.loadImportedPackages(table)

	if rootClass == "" {
		names := table.Names()
		if len(names) == 0 {
			t.logger.LogConfigError("Translate", "no classes found in "+sourcePath)
			return nil, false
		}
		rootClass = names[len(names)-1]
	}

	t.beginPhase("Flattening")
	builder := flatten.NewBuilder(table, t.logger)
	flat, ok := builder.Flatten(rootClass)
	t.endPhase(ok)
	if !ok {
		return nil, false
	}

	t.beginPhase("Building")
	system, ok := dae.Build(flat, t.logger)
	t.endPhase(ok)
	if !ok {
		return nil, false
	}

	t.beginPhase("Serializing")
	doc := serialize.FromDae(system, t.warnings())
	t.endPhase(true)

	return &Result{Flat: flat, Dae: system, Document: doc}, true
}

// loadImportedPackages satisfies imports whose head package is absent from
// the class table by searching the MODELICAPATH roots and
// loading any match, repeating until no load adds a new import target. This
// happens before flattening starts, so the class table stays immutable for
// the rest of the request.
func (t *Translator) loadImportedPackages(table *mods.ClassTable) {
	if len(t.searchRoots) == 0 {
		return
	}

	loaded := make(map[string]bool)
	for {
		missing := missingImportHeads(table)

		progress := false
		for _, head := range missing {
			if loaded[head] {
				continue
			}
			loaded[head] = true

			if path, ok := mods.SearchPath(t.searchRoots, head); ok {
				t.loader.Load(path)
				progress = true
			}
		}

		if !progress {
			return
		}
	}
}

// missingImportHeads collects the head segment of every import path in the
// table that does not resolve to a registered top-level class, in table
// order for determinism.
func missingImportHeads(table *mods.ClassTable) []string {
	var heads []string
	seen := make(map[string]bool)

	for _, name := range table.Names() {
		cd, _ := table.Lookup(name)
		for _, head := range mods.ImportHeads(cd) {
			if seen[head] {
				continue
			}
			seen[head] = true
			if _, ok := table.Lookup(head); !ok {
				heads = append(heads, head)
			}
		}
	}
	return heads
}

// warnings projects the non-error diagnostics logged so far, the
// side-channel attached to the emitted document.
func (t *Translator) warnings() []logging.Diagnostic {
	var out []logging.Diagnostic
	for _, d := range t.logger.Diagnostics() {
		if !d.IsError {
			out = append(out, d)
		}
	}
	return out
}
