package mention

import (
	"sort"

	"github.com/hpungsan/daybook/internal/diary"
)

// Text is the slice of an entry that mention analytics reads.
type Text struct {
	ID           string
	Title        string
	PlainContent string
	Mood         diary.Mood
	CreatedAt    int64
}

// Source streams every entry's text, newest first.
type Source func(fn func(Text) error) error

// Stat is one person's mention total.
type Stat struct {
	ArchiveID string   `json:"archiveId"`
	Name      string   `json:"name"`
	Count     int      `json:"count"`
	Keywords  []string `json:"keywords"`
}

// EntryMention is one entry that mentions a person.
type EntryMention struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Mood            diary.Mood `json:"mood"`
	CreatedAt       int64      `json:"createdAt"`
	MentionCount    int        `json:"mentionCount"`
	MatchedKeywords []string   `json:"matchedKeywords"`
}

// Details is the full mention history of one person.
type Details struct {
	ArchiveID string         `json:"archiveId"`
	Name      string         `json:"name"`
	Keywords  []string       `json:"keywords"`
	Total     int            `json:"total"`
	Entries   []EntryMention `json:"entries"`
}

// ComputeStats scans every entry and returns mention totals per person,
// highest first. People with no mentions are left out.
func ComputeStats(m *Matcher, src Source) ([]Stat, error) {
	counts := make(map[int]int)
	if len(m.people) > 0 {
		err := src(func(t Text) error {
			for idx, h := range m.Scan(CandidateText(t.Title, t.PlainContent)) {
				counts[idx] += h.Count
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	stats := make([]Stat, 0, len(counts))
	for idx, n := range counts {
		if n == 0 {
			continue
		}
		p := m.people[idx]
		stats = append(stats, Stat{ArchiveID: p.ID, Name: p.Name, Count: n, Keywords: p.Keywords})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// ComputeDetails collects every entry mentioning the person at index idx,
// in source order.
func ComputeDetails(m *Matcher, idx int, src Source) (*Details, error) {
	p := m.people[idx]
	d := &Details{
		ArchiveID: p.ID,
		Name:      p.Name,
		Keywords:  p.Keywords,
		Entries:   []EntryMention{},
	}
	err := src(func(t Text) error {
		h := m.Scan(CandidateText(t.Title, t.PlainContent))[idx]
		if h == nil {
			return nil
		}
		d.Entries = append(d.Entries, EntryMention{
			ID:              t.ID,
			Title:           t.Title,
			Mood:            t.Mood,
			CreatedAt:       t.CreatedAt,
			MentionCount:    h.Count,
			MatchedKeywords: h.Keywords,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.Total = len(d.Entries)
	return d, nil
}

// Page returns a copy of d with Entries cut to [offset, offset+limit).
// Total keeps the full count.
func (d *Details) Page(limit, offset int) *Details {
	out := *d
	if offset < 0 {
		offset = 0
	}
	if offset >= len(d.Entries) {
		out.Entries = []EntryMention{}
		return &out
	}
	end := len(d.Entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out.Entries = d.Entries[offset:end]
	return &out
}
