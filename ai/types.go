package ai

// TagTypes defines the valid topical tags a classifier may assign to chunks.
var TagTypes = []string{
	"business",
	"education",
	"entertainment",
	"finance",
	"health",
	"history",
	"howto",
	"legal",
	"narrative",
	"news",
	"opinion",
	"politics",
	"reference",
	"research",
	"science",
	"sports",
	"technical",
	"travel",
}
