package roster

import (
	"context"
	"sort"
)

// Group is the records of one category.
type Group struct {
	Category Category
	Records  []Record
}

// Directory answers read-only questions about permanent records. It never
// touches sessions.
type Directory struct {
	records RecordReader
}

// NewDirectory wraps a record reader.
func NewDirectory(records RecordReader) *Directory {
	return &Directory{records: records}
}

// ListByCategory returns the records of key sorted by name, then identity.
// An unknown key yields no records and no error.
func (d *Directory) ListByCategory(ctx context.Context, key string) ([]Record, error) {
	if _, ok := LookupCategory(key); !ok {
		return nil, nil
	}
	recs, err := d.records.ListByCategory(ctx, key)
	if err != nil {
		return nil, unavailable("list category", err)
	}
	sortRecords(recs)
	return recs, nil
}

// Groups returns every non-empty category in display order.
func (d *Directory) Groups(ctx context.Context) ([]Group, error) {
	recs, err := d.records.List(ctx)
	if err != nil {
		return nil, unavailable("list records", err)
	}
	byCategory := make(map[string][]Record, len(categories))
	for _, r := range recs {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	var groups []Group
	for _, c := range categories {
		rs := byCategory[c.Key]
		if len(rs) == 0 {
			continue
		}
		sortRecords(rs)
		groups = append(groups, Group{Category: c, Records: rs})
	}
	return groups, nil
}

// Profile returns the record of identity.
func (d *Directory) Profile(ctx context.Context, identity int64) (Record, bool, error) {
	rec, ok, err := d.records.Get(ctx, identity)
	if err != nil {
		return Record{}, false, unavailable("get record", err)
	}
	return rec, ok, nil
}

func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Name != recs[j].Name {
			return recs[i].Name < recs[j].Name
		}
		return recs[i].Identity < recs[j].Identity
	})
}
