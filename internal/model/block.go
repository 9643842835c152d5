package model

import "golang.org/x/net/html"

// Block is a subtree selected as a record candidate by the Block Finder,
// together with its parsed record. Invariant (spec.md §3): every required
// rule has either a parsed value or an explicit default.
type Block struct {
	Tag           *html.Node
	ScraperIndex  int
	GroupID       int
	ParentIndex   int
	HasParent     bool
	Values        map[string]any
	Alias         string
}

// Record is the output row handed to the persistence adapter, keyed by
// Alias within one (domain, locale).
type Record struct {
	Alias        string
	Title        string
	Make         string
	Model        string
	Variant      string
	Year         string
	Mileage      float64
	Link         string
	FuelType     string
	Transmission string
	Price        float64
	ImageLink    string
	ImageHash    string
	Extra        map[string]any
}

// ProjectBlock drops the block-finder bookkeeping fields (tag, index,
// group id, parent) and returns just the parsed rule values, mirroring
// CatalogScraper.py's clean_records().
func ProjectBlock(b Block) map[string]any {
	out := make(map[string]any, len(b.Values))
	for k, v := range b.Values {
		out[k] = v
	}
	return out
}

// knownRecordFields are the rule names with a dedicated Record column; any
// other rule value lands in Record.Extra.
var knownRecordFields = map[string]bool{
	"title": true, "make": true, "model": true, "variant": true, "year": true,
	"mileage": true, "link": true, "fuelType": true, "transmission": true, "price": true,
}

// NewRecord projects a block's parsed rule values onto the fixed Record
// shape the store persists, carrying every rule name it doesn't recognize
// into Extra rather than discarding it.
func NewRecord(b Block) Record {
	r := Record{Alias: b.Alias, Extra: map[string]any{}}
	for name, v := range b.Values {
		switch name {
		case "title":
			r.Title, _ = v.(string)
		case "make":
			r.Make, _ = v.(string)
		case "model":
			r.Model, _ = v.(string)
		case "variant":
			r.Variant, _ = v.(string)
		case "year":
			r.Year, _ = v.(string)
		case "mileage":
			r.Mileage, _ = v.(float64)
		case "link":
			r.Link, _ = v.(string)
		case "fuelType":
			r.FuelType, _ = v.(string)
		case "transmission":
			r.Transmission, _ = v.(string)
		case "price":
			r.Price, _ = v.(float64)
		default:
			if !knownRecordFields[name] {
				r.Extra[name] = v
			}
		}
	}
	return r
}
