package models

type RecordType string

const (
	RecordTypeList RecordType = "list"
	RecordTypePost RecordType = "post"
)

// Record is one emitted feed entry. Absent fields encode as JSON null.
type Record interface {
	Type() RecordType
	PostID() string
}

// ListRecord is produced once per result row on a search page.
type ListRecord struct {
	PID          *string    `json:"pid"`
	Kind         RecordType `json:"type"`
	Price        *string    `json:"price"`
	HousingType  []string   `json:"housing-type"`
	Neighborhood *string    `json:"neighborhood"`
	Title        *string    `json:"title"`
}

func NewListRecord() *ListRecord {
	return &ListRecord{Kind: RecordTypeList, HousingType: []string{}}
}

func (r *ListRecord) Type() RecordType { return RecordTypeList }

func (r *ListRecord) PostID() string {
	if r.PID == nil {
		return ""
	}
	return *r.PID
}

// PostRecord is produced once per visited listing detail page.
type PostRecord struct {
	PID           string     `json:"pid"`
	Kind          RecordType `json:"type"`
	Housing       []string   `json:"housing"`
	Tags          []string   `json:"tags"`
	AvailableDate *string    `json:"available-date"`
	Latitude      *string    `json:"latitude"`
	Longitude     *string    `json:"longitude"`
}

func NewPostRecord(pid string) *PostRecord {
	return &PostRecord{PID: pid, Kind: RecordTypePost, Housing: []string{}, Tags: []string{}}
}

func (r *PostRecord) Type() RecordType { return RecordTypePost }

func (r *PostRecord) PostID() string { return r.PID }
