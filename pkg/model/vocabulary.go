package model

import (
	"fmt"
	"strings"
	"unicode"
)

// Label is the entity type tag of a node.
type Label string

const (
	LabelProject      Label = "Project"
	LabelPerson       Label = "Person"
	LabelPhoneNumber  Label = "PhoneNumber"
	LabelEmailAddress Label = "EmailAddress"
	LabelDevice       Label = "Device"
	LabelApp          Label = "App"
	LabelAccount      Label = "Account"
	LabelLocation     Label = "Location"
	LabelURL          Label = "URL"
	LabelPage         Label = "Page"
	LabelOrganization Label = "Organization"
	LabelFile         Label = "File"
	LabelUnknown      Label = "Unknown"
)

// Labels lists the closed set of entity labels in display order.
var Labels = []Label{
	LabelProject, LabelPerson, LabelPhoneNumber, LabelEmailAddress, LabelDevice,
	LabelApp, LabelAccount, LabelLocation, LabelURL, LabelPage, LabelOrganization,
	LabelFile,
}

// IsKnown reports whether l belongs to the closed label set.
func (l Label) IsKnown() bool {
	for _, k := range Labels {
		if l == k {
			return true
		}
	}
	return false
}

// Normalize returns l, or LabelUnknown when l is outside the closed set.
func (l Label) Normalize() Label {
	if l.IsKnown() {
		return l
	}
	return LabelUnknown
}

// ParseLabel matches s against the closed label set, ignoring case.
func ParseLabel(s string) (Label, bool) {
	s = strings.TrimSpace(s)
	for _, k := range Labels {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	return Label(s), false
}

// RelType is the relationship tag of an edge.
type RelType string

const (
	RelHasPhone      RelType = "HAS_PHONE"
	RelHasEmail      RelType = "HAS_EMAIL"
	RelBelongsToOrg  RelType = "BELONGS_TO_ORG"
	RelHasAccount    RelType = "HAS_ACCOUNT"
	RelCalled        RelType = "CALLED"
	RelMessaged      RelType = "MESSAGED"
	RelEmailed       RelType = "EMAILED"
	RelOwnsDevice    RelType = "OWNS_DEVICE"
	RelInstalledOn   RelType = "INSTALLED_ON"
	RelVisited       RelType = "VISITED"
	RelLocatedAt     RelType = "LOCATED_AT"
	RelBrowsed       RelType = "BROWSED"
	RelMentionedIn   RelType = "MENTIONED_IN"
	RelExtractedFrom RelType = "EXTRACTED_FROM"
	RelPartOf        RelType = "PART_OF"
)

// RelTypes lists the closed set of relationship types.
var RelTypes = []RelType{
	RelHasPhone, RelHasEmail, RelBelongsToOrg, RelHasAccount,
	RelCalled, RelMessaged, RelEmailed,
	RelOwnsDevice, RelInstalledOn,
	RelVisited, RelLocatedAt,
	RelBrowsed,
	RelMentionedIn, RelExtractedFrom,
	RelPartOf,
}

// IsKnown reports whether t belongs to the closed relationship set.
func (t RelType) IsKnown() bool {
	for _, k := range RelTypes {
		if t == k {
			return true
		}
	}
	return false
}

// IsCommunication reports whether t records a call, message or email.
func (t RelType) IsCommunication() bool {
	return t == RelCalled || t == RelMessaged || t == RelEmailed
}

// displayKeys is the property lookup order for DisplayName. Each label keys
// its uniqueness constraint on one of these.
var displayKeys = []string{"name", "number", "address", "package", "title", "page_id", "uid", "project_id"}

// DisplayName returns the human-facing name of a node: the first non-empty
// property out of displayKeys, falling back to the id.
func (n Node) DisplayName() string {
	for _, k := range displayKeys {
		v, ok := n.Properties[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			return s
		}
	}
	return n.ID
}

// Kebab converts CamelCase or SCREAMING_SNAKE tags to kebab-case, e.g.
// "PhoneNumber" -> "phone-number", "HAS_PHONE" -> "has-phone", "URL" -> "url".
func Kebab(tag string) string {
	var b strings.Builder
	runes := []rune(tag)
	for i, r := range runes {
		switch {
		case r == '_' || r == ' ' || r == '-':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('-')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Trim(b.String(), "-")
}
