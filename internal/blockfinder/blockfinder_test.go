package blockfinder

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"listingscraper/internal/model"
	"listingscraper/internal/tagger"
)

func parseDoc(t *testing.T, htmlStr string) (*goquery.Document, *model.Index) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc, model.NewIndex(doc.Nodes[0])
}

func TestDistanceSelfIsZero(t *testing.T) {
	_, idx := parseDoc(t, `<div><p>a</p></div>`)
	p := idx.Node(idx.Len() - 1)
	if d := distance(p, p); d != 0 {
		t.Fatalf("got %d, want 0", d)
	}
}

func TestDistanceSiblingsIsOne(t *testing.T) {
	doc, _ := parseDoc(t, `<div><p id="a">a</p><p id="b">b</p></div>`)
	a := doc.Find("#a").Nodes[0]
	b := doc.Find("#b").Nodes[0]
	if d := distance(a, b); d != 1 {
		t.Fatalf("got %d, want 1", d)
	}
}

func TestDistanceNestedTagToContainerSiblingIsTwo(t *testing.T) {
	// <section><div><article id=target/></div><span id=other/></section>:
	// target's path ends section/div/article, other's ends section/span.
	// The paths diverge right below section, so target is 1 step past the
	// divergence point and other is 0, for a total of 1+0+1(the +1 term)=2.
	doc, _ := parseDoc(t, `<section><div><article id="target"></article></div><span id="other"></span></section>`)
	target := doc.Find("#target").Nodes[0]
	other := doc.Find("#other").Nodes[0]
	got := distance(target, other)
	if got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func rules() []model.AttributeRule {
	return []model.AttributeRule{
		{Name: "alias", Type: model.RuleText, Required: true, Examples: []string{"ALIAS-1", "ALIAS-2"}, Text: true},
		{Name: "title", Type: model.RuleText, Required: true, Examples: []string{"Volvo", "Saab"}, Text: true},
	}
}

func TestFindGroupsTwoListingBlocksAndParsesAlias(t *testing.T) {
	html := `<body>
		<div class="list">
			<div class="card"><span>ALIAS-1</span><h2>Volvo</h2></div>
			<div class="card"><span>ALIAS-2</span><h2>Saab</h2></div>
		</div>
	</body>`
	doc, idx := parseDoc(t, html)
	ann := tagger.Tag(idx, doc.Nodes[0], rules())

	blocks := Find(idx, doc.Nodes[0], ann, rules(), Options{MaxTagDistance: 4})

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	aliases := map[string]bool{}
	for _, b := range blocks {
		aliases[b.Alias] = true
		if !b.HasParent {
			t.Fatalf("expected blocks to have a common parent")
		}
	}
	if !aliases["ALIAS-1"] || !aliases["ALIAS-2"] {
		t.Fatalf("got aliases %v, want ALIAS-1 and ALIAS-2", aliases)
	}
}

func TestMergeDuplicateAliasesKeepsFirst(t *testing.T) {
	blocks := []model.Block{
		{Alias: "a", ScraperIndex: 1},
		{Alias: "a", ScraperIndex: 2},
		{Alias: "b", ScraperIndex: 3},
	}
	out := mergeDuplicateAliases(blocks)
	if len(out) != 2 {
		t.Fatalf("expected 2 unique blocks, got %d", len(out))
	}
	if out[0].ScraperIndex != 1 {
		t.Fatalf("expected first-wins, got scraper index %d", out[0].ScraperIndex)
	}
}
