package confluence

// Page is a Confluence page as returned with
// expand=body.storage,body.view,version,ancestors.
type Page struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      PageBody   `json:"body"`
	Version   PageNumber `json:"version"`
	Ancestors []Ancestor `json:"ancestors,omitempty"`
	Links     PageLinks  `json:"_links"`
}

// PageBody holds the representations of a page body.
type PageBody struct {
	Storage Representation `json:"storage"`
	View    Representation `json:"view"`
}

// Representation is one rendering of a page body.
type Representation struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

// PageNumber is the version record of a page.
type PageNumber struct {
	Number int `json:"number"`
}

// Ancestor is a parent page reference.
type Ancestor struct {
	ID string `json:"id"`
}

// PageLinks carries the page's web addresses.
type PageLinks struct {
	WebUI string `json:"webui"`
	Base  string `json:"base"`
}

// SearchResponse is a page of content search results.
type SearchResponse struct {
	Results []Page `json:"results"`
	Start   int    `json:"start"`
	Limit   int    `json:"limit"`
	Size    int    `json:"size"`
}

// Attachment is a file attached to a page.
type Attachment struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Metadata struct {
		MediaType string `json:"mediaType"`
		Comment   string `json:"comment"`
	} `json:"metadata"`
	Extensions struct {
		FileSize int64 `json:"fileSize"`
	} `json:"extensions"`
	Links struct {
		Download string `json:"download"`
	} `json:"_links"`
}

// AttachmentsResponse is the child attachment listing of a page.
type AttachmentsResponse struct {
	Results []Attachment `json:"results"`
	Size    int          `json:"size"`
}

// pageUpdate is the body of PUT /rest/api/content/{id}.
type pageUpdate struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Version   PageNumber `json:"version"`
	Ancestors []Ancestor `json:"ancestors,omitempty"`
	Body      struct {
		Storage Representation `json:"storage"`
	} `json:"body"`
}
