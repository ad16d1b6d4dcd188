package main

import (
	"context"

	"glpinv/internal/glpi"
	"glpinv/internal/groups"
	"glpinv/internal/inventory"
	"glpinv/internal/subst"
)

// glpiRetriever runs inventory queries through the GLPI search endpoint.
type glpiRetriever struct {
	client *glpi.Client
}

func (r glpiRetriever) Search(ctx context.Context, q inventory.Query) ([]subst.Record, error) {
	res, err := r.client.Search(ctx, q.ItemType, glpi.SearchOptions{
		Criteria:     conditions(q.Criteria),
		MetaCriteria: conditions(q.MetaCriteria),
		ForceDisplay: q.ForceDisplay,
		Range:        q.Range,
	})
	if err != nil {
		return nil, err
	}
	records := make([]subst.Record, len(res.Data))
	for i, item := range res.Data {
		records[i] = subst.MapRecord(item)
	}
	return records, nil
}

func conditions(in []groups.Condition) []map[string]any {
	if in == nil {
		return nil
	}
	out := make([]map[string]any, len(in))
	for i, c := range in {
		out[i] = map[string]any(c)
	}
	return out
}
