// Package diary holds the domain types shared by the store, the operations
// layer and the facades.
package diary

// Mood is one of the five fixed moods an entry can carry.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodCalm    Mood = "calm"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
	MoodAngry   Mood = "angry"
)

// Moods lists every valid mood in display order.
var Moods = []Mood{MoodHappy, MoodCalm, MoodNeutral, MoodSad, MoodAngry}

// ArchiveType classifies an archive. Only persons take part in mention analytics.
type ArchiveType string

const (
	ArchivePerson ArchiveType = "person"
	ArchiveObject ArchiveType = "object"
	ArchiveOther  ArchiveType = "other"
)

// Entry is a single dated journal entry.
type Entry struct {
	// ID is a ULID assigned on first save
	ID string `json:"id"`

	Title string `json:"title"`

	// Content is sanitized rich markup
	Content string `json:"content"`

	// PlainContent is the tag-stripped mirror of Content, recomputed on every save
	PlainContent string `json:"plainContent"`

	Mood Mood     `json:"mood"`
	Tags []string `json:"tags"`

	// Weather is optional free text
	Weather *string `json:"weather,omitempty"`

	// CreatedAt is immutable after the first save (ms epoch)
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Archive is a named person, object or other entity that diary text can reference.
type Archive struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Aliases     []string    `json:"aliases"`
	Description string      `json:"description"`
	Type        ArchiveType `json:"type"`

	// MainImage and Images hold image references; they are counted as two separate fields
	MainImage string   `json:"mainImage"`
	Images    []string `json:"images"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Tag is a global tag name with the number of entries carrying it.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Attachment is a file stored alongside an entry in the attachments directory.
type Attachment struct {
	ID         string `json:"id"`
	DiaryID    string `json:"diaryId"`
	FileName   string `json:"fileName"`
	StoredName string `json:"storedName"`
	Size       int64  `json:"size"`
	CreatedAt  int64  `json:"createdAt"`
}

// Setting is one key/value pair of the flat settings store.
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SettingAvatar is the only settings key whose value is an image field.
const SettingAvatar = "avatar"
