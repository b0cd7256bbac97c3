package mcpserver

import (
	"slices"
	"strings"
)

// ParamKind is the JSON type of a tool argument.
type ParamKind int

const (
	KindString ParamKind = iota
	KindNumber
	KindBoolean
	// KindTable is an array of rows, each an array of cell strings.
	KindTable
)

func (k ParamKind) String() string {
	return [...]string{"string", "number", "boolean", "array"}[k]
}

type Param struct {
	Name        string
	Kind        ParamKind
	Required    bool
	Description string
	Enum        []string
}

// ToolSpec declares one MCP tool. The tool name doubles as the helper action.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
	// Structured tools return a JSON document inside the success message.
	Structured bool
}

// Missing lists required parameters absent from args.
func (t ToolSpec) Missing(args map[string]any) []string {
	var missing []string
	for _, p := range t.Params {
		if _, ok := args[p.Name]; p.Required && !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

func str(name, desc string) Param { return Param{Name: name, Kind: KindString, Description: desc} }
func num(name, desc string) Param { return Param{Name: name, Kind: KindNumber, Description: desc} }
func flag(name, desc string) Param { return Param{Name: name, Kind: KindBoolean, Description: desc} }
func table(name, desc string) Param { return Param{Name: name, Kind: KindTable, Description: desc} }
func required(p Param) Param {
	p.Required = true
	return p
}
func oneOf(p Param, v ...string) Param {
	p.Enum = v
	return p
}

var (
	filePath     = required(str("file_path", "Absolute path of the document"))
	slideIndex   = required(num("slide_index", "Zero-based slide index"))
	fontName     = str("font_name", "Font family, for example Arial")
	fontSize     = num("font_size", "Font size in points")
	color        = str("color", "Text color as #RRGGBB")
	alignment    = oneOf(str("alignment", "Paragraph alignment"), "left", "center", "right", "justify")
	bold         = flag("bold", "Bold text")
	italic       = flag("italic", "Italic text")
	underline    = flag("underline", "Underlined text")
	imagePath    = required(str("image_path", "Absolute path of the image file"))
	headerRow    = flag("header_row", "Treat the first row as a header")
	docMetaTitle = str("title", "Document title")
	docAuthor    = str("author", "Document author")
)

var catalog = []ToolSpec{
	// Text documents.
	{
		Name:        "create_blank_document",
		Description: "Create a new blank text document (.odt) with optional metadata.",
		Params: []Param{
			required(str("filename", "Absolute path of the document to create")),
			docMetaTitle, docAuthor,
			str("subject", "Document subject"),
			str("keywords", "Comma separated keywords"),
		},
	},
	{
		Name:        "read_text_document",
		Description: "Read the full text of a document.",
		Params:      []Param{filePath},
	},
	{
		Name:        "get_document_properties",
		Description: "Return document metadata (title, author, subject, keywords, statistics) as JSON.",
		Params:      []Param{filePath},
		Structured:  true,
	},
	{
		Name:        "list_documents",
		Description: "List office documents (.odt, .odp, .ods and similar) in a directory as JSON.",
		Params:      []Param{required(str("directory", "Directory to scan"))},
		Structured:  true,
	},
	{
		Name:        "copy_document",
		Description: "Copy a document to a new location.",
		Params: []Param{
			required(str("source_path", "Document to copy")),
			required(str("target_path", "Destination path")),
		},
	},
	{
		Name:        "add_text",
		Description: "Insert text into a document.",
		Params: []Param{
			filePath,
			required(str("text", "Text to insert")),
			oneOf(str("position", "Where to insert the text"), "beginning", "end", "current"),
		},
	},
	{
		Name:        "add_heading",
		Description: "Append a heading to a document.",
		Params: []Param{
			filePath,
			required(str("text", "Heading text")),
			required(num("level", "Heading level from 1 to 6")),
		},
	},
	{
		Name:        "add_paragraph",
		Description: "Append a paragraph to a document.",
		Params: []Param{
			filePath,
			required(str("text", "Paragraph text")),
			alignment,
		},
	},
	{
		Name:        "add_table",
		Description: "Append a table, optionally filled with data.",
		Params: []Param{
			filePath,
			required(num("rows", "Number of rows")),
			required(num("columns", "Number of columns")),
			table("data", "Cell values, one array per row"),
			headerRow,
		},
	},
	{
		Name:        "insert_image",
		Description: "Insert an image into a document.",
		Params: []Param{
			filePath, imagePath,
			num("width", "Width in 1/100 mm"),
			num("height", "Height in 1/100 mm"),
		},
	},
	{
		Name:        "insert_page_break",
		Description: "Insert a page break at the end of a document.",
		Params:      []Param{filePath},
	},
	{
		Name:        "format_text",
		Description: "Format every occurrence of a piece of text.",
		Params: []Param{
			filePath,
			required(str("text_to_find", "Text to format")),
			bold, italic, underline, color, fontName, fontSize,
		},
	},
	{
		Name:        "search_replace_text",
		Description: "Replace all occurrences of a string.",
		Params: []Param{
			filePath,
			required(str("search_text", "Text to search for")),
			required(str("replace_text", "Replacement text")),
		},
	},
	{
		Name:        "delete_text",
		Description: "Delete all occurrences of a string.",
		Params: []Param{
			filePath,
			required(str("text_to_delete", "Text to delete")),
		},
	},
	{
		Name:        "format_table",
		Description: "Format an existing table.",
		Params: []Param{
			filePath,
			required(num("table_index", "Zero-based table index")),
			num("border_width", "Border width in points"),
			str("background_color", "Cell background as #RRGGBB"),
			headerRow,
		},
	},
	{
		Name:        "delete_paragraph",
		Description: "Delete a paragraph by index.",
		Params: []Param{
			filePath,
			required(num("paragraph_index", "Zero-based paragraph index")),
		},
	},
	{
		Name:        "apply_document_style",
		Description: "Apply font, color and alignment to the whole document.",
		Params:      []Param{filePath, fontName, fontSize, color, alignment},
	},

	// Presentations.
	{
		Name:        "create_blank_presentation",
		Description: "Create a new blank presentation (.odp).",
		Params: []Param{
			required(str("filename", "Absolute path of the presentation to create")),
			docMetaTitle, docAuthor,
			str("subject", "Presentation subject"),
			str("keywords", "Comma separated keywords"),
		},
	},
	{
		Name:        "read_presentation",
		Description: "Read the titles and content of every slide.",
		Params:      []Param{filePath},
	},
	{
		Name:        "add_slide",
		Description: "Add a slide with a title and content.",
		Params: []Param{
			filePath,
			str("title", "Slide title"),
			str("content", "Slide body text"),
			num("slide_index", "Insert position; appends when omitted"),
		},
	},
	{
		Name:        "edit_slide_content",
		Description: "Replace the body text of a slide.",
		Params:      []Param{filePath, slideIndex, required(str("new_content", "New body text"))},
	},
	{
		Name:        "edit_slide_title",
		Description: "Replace the title of a slide.",
		Params:      []Param{filePath, slideIndex, required(str("new_title", "New title"))},
	},
	{
		Name:        "delete_slide",
		Description: "Delete a slide by index.",
		Params:      []Param{filePath, slideIndex},
	},
	{
		Name:        "apply_presentation_template",
		Description: "Apply a built-in presentation template.",
		Params:      []Param{filePath, required(str("template_name", "Template name, for example Beehive"))},
	},
	{
		Name:        "format_slide_content",
		Description: "Format the body text of a slide.",
		Params:      []Param{filePath, slideIndex, fontName, fontSize, bold, italic, underline, color, alignment},
	},
	{
		Name:        "format_slide_title",
		Description: "Format the title of a slide.",
		Params:      []Param{filePath, slideIndex, fontName, fontSize, bold, italic, underline, color, alignment},
	},
	{
		Name:        "insert_slide_image",
		Description: "Insert an image into a slide, scaled to fit and centered.",
		Params: []Param{
			filePath, slideIndex, imagePath,
			num("max_width", "Maximum width in 1/100 mm"),
			num("max_height", "Maximum height in 1/100 mm"),
		},
	},
}

// Catalog returns every tool, sorted by name.
func Catalog() []ToolSpec {
	out := slices.Clone(catalog)
	slices.SortFunc(out, func(a, b ToolSpec) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Lookup finds a tool by name.
func Lookup(name string) (ToolSpec, bool) {
	i := slices.IndexFunc(catalog, func(t ToolSpec) bool { return t.Name == name })
	if i < 0 {
		return ToolSpec{}, false
	}
	return catalog[i], true
}
