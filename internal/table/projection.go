package table

// DefaultDropColumns are removed from the Netflix titles export before it is
// bulk-loaded into the titles table.
var DefaultDropColumns = []string{
	"show_id",
	"cast",
	"date_added",
	"rating",
	"duration",
	"listed_in",
	"description",
}

// Projection maps an input header onto the surviving columns.
type Projection struct {
	keep    []int
	header  []string
	dropped []string
	missing []string
}

// NewProjection computes which columns of header survive once drop is
// removed. Every occurrence of a dropped name is removed. Names absent from
// the header fail with MissingColumnError unless allowMissing is set, in
// which case they are recorded in Missing.
func NewProjection(header, drop []string, allowMissing bool) (*Projection, error) {
	dropSet := make(map[string]struct{}, len(drop))
	var order []string
	for _, name := range drop {
		if _, dup := dropSet[name]; dup {
			continue
		}
		dropSet[name] = struct{}{}
		order = append(order, name)
	}

	seen := make(map[string]bool, len(order))
	p := &Projection{}
	for i, name := range header {
		if _, ok := dropSet[name]; ok {
			seen[name] = true
			continue
		}
		p.keep = append(p.keep, i)
		p.header = append(p.header, name)
	}

	for _, name := range order {
		if seen[name] {
			p.dropped = append(p.dropped, name)
		} else {
			p.missing = append(p.missing, name)
		}
	}
	if len(p.missing) > 0 && !allowMissing {
		return nil, &MissingColumnError{Columns: p.missing}
	}
	if p.header == nil {
		p.header = []string{}
	}
	return p, nil
}

// Header returns the surviving column names in original relative order.
func (p *Projection) Header() []string { return p.header }

// Dropped lists the drop names that were present in the header.
func (p *Projection) Dropped() []string { return p.dropped }

// Missing lists the drop names that were absent (lenient mode only).
func (p *Projection) Missing() []string { return p.missing }

// Apply returns a new row holding only the surviving fields.
func (p *Projection) Apply(row []string) []string {
	out := make([]string, len(p.keep))
	for i, idx := range p.keep {
		out[i] = row[idx]
	}
	return out
}
