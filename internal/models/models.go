package models

import "time"

// CapturedImage is one in-memory photo of a card side
type CapturedImage struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// Empty reports whether the image carries no payload
func (c *CapturedImage) Empty() bool {
	return c == nil || len(c.Data) == 0
}

// ExtractedFields holds the contact fields read from a single card image.
// Every field is a plain string; absent values are "".
type ExtractedFields struct {
	Name     string `json:"name" yaml:"name"`
	JobTitle string `json:"jobTitle" yaml:"jobTitle"`
	Company  string `json:"company" yaml:"company"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
	Website  string `json:"website" yaml:"website"`
	Address  string `json:"address" yaml:"address"`
	FullText string `json:"fullText" yaml:"fullText"`
}

// MergedRecord is the single contact record built from both card sides
type MergedRecord struct {
	Name     string `json:"name" yaml:"name"`
	JobTitle string `json:"jobTitle" yaml:"jobTitle"`
	Company  string `json:"company" yaml:"company"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
	Website  string `json:"website" yaml:"website"`
	Address  string `json:"address" yaml:"address"`
}

// MergeFields lists the record fields in persisted column order
var MergeFields = []string{"name", "jobTitle", "company", "email", "phone", "website", "address"}

// Get returns the value of a merge field by its JSON name
func (e ExtractedFields) Get(field string) string {
	switch field {
	case "name":
		return e.Name
	case "jobTitle":
		return e.JobTitle
	case "company":
		return e.Company
	case "email":
		return e.Email
	case "phone":
		return e.Phone
	case "website":
		return e.Website
	case "address":
		return e.Address
	case "fullText":
		return e.FullText
	}
	return ""
}

// Get returns the value of a merge field by its JSON name
func (m MergedRecord) Get(field string) string {
	switch field {
	case "name":
		return m.Name
	case "jobTitle":
		return m.JobTitle
	case "company":
		return m.Company
	case "email":
		return m.Email
	case "phone":
		return m.Phone
	case "website":
		return m.Website
	case "address":
		return m.Address
	}
	return ""
}

// Set assigns a merge field by its JSON name. Unknown fields are ignored.
func (m *MergedRecord) Set(field, value string) {
	switch field {
	case "name":
		m.Name = value
	case "jobTitle":
		m.JobTitle = value
	case "company":
		m.Company = value
	case "email":
		m.Email = value
	case "phone":
		m.Phone = value
	case "website":
		m.Website = value
	case "address":
		m.Address = value
	}
}

// PublishedImageSet holds the public URLs of both card images, index-aligned
// with the captured images (URLs[0] is image 1).
type PublishedImageSet struct {
	URLs [2]string `json:"urls"`
}

// NewPublishedImageSet builds a set from an ordered upload result
func NewPublishedImageSet(urls []string) PublishedImageSet {
	var set PublishedImageSet
	copy(set.URLs[:], urls)
	return set
}

// PersistedRow is one appended row of the tabular store
type PersistedRow struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	MergedRecord `yaml:",inline"`
	ImageURL1 string `json:"imageUrl1" yaml:"imageUrl1"`
	ImageURL2 string `json:"imageUrl2" yaml:"imageUrl2"`
}

// Columns renders the row in header order
func (r PersistedRow) Columns() []any {
	return []any{
		r.Timestamp.Format(time.RFC3339),
		r.Name,
		r.JobTitle,
		r.Company,
		r.Email,
		r.Phone,
		r.Website,
		r.Address,
		r.ImageURL1,
		r.ImageURL2,
	}
}

// HeaderRow is written once when the destination sheet is empty
var HeaderRow = []string{
	"Timestamp",
	"Name",
	"Job Title",
	"Company",
	"Email",
	"Phone",
	"Website",
	"Address",
	"Image 1 URL",
	"Image 2 URL",
}

// ImageInfo describes a captured image without its payload
type ImageInfo struct {
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
	Size     int    `json:"size"`
}

// SessionState is the client-visible view of one capture session
type SessionState struct {
	ID         string           `json:"id"`
	State      string           `json:"state"`
	Image1     *ImageInfo       `json:"image1,omitempty"`
	Image2     *ImageInfo       `json:"image2,omitempty"`
	Extracted1 *ExtractedFields `json:"extracted1,omitempty"`
	Extracted2 *ExtractedFields `json:"extracted2,omitempty"`
	Merged     *MergedRecord    `json:"merged,omitempty"`
	ImageURLs  []string         `json:"image_urls,omitempty"`
	SaveStatus string           `json:"save_status,omitempty"`
	Attempted  bool             `json:"save_attempted"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
