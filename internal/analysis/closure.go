package analysis

import "github.com/bayleafwalker/bindery-usecheck/internal/metadata"

// UseClosure returns the imports of m that the implementation of exp depends on.
//
// Uses satisfied by another export of m cascade into that export's own uses. Uses that are
// neither imported nor exported by m are dropped. Each package name is expanded at most once,
// so cyclic uses declarations terminate.
func UseClosure(m metadata.Manifest, exp metadata.ExportedPackage) []metadata.ImportedPackage {
	visited := map[string]struct{}{exp.Name: {}}
	var out []metadata.ImportedPackage
	collectUses(m, exp, visited, &out)
	return out
}

func collectUses(m metadata.Manifest, exp metadata.ExportedPackage, visited map[string]struct{}, out *[]metadata.ImportedPackage) {
	for _, u := range exp.Uses {
		if _, ok := visited[u]; ok {
			continue
		}
		visited[u] = struct{}{}

		if imp, ok := m.Import(u); ok {
			*out = append(*out, imp)
			continue
		}
		if next, ok := m.Export(u); ok {
			collectUses(m, next, visited, out)
		}
	}
}
