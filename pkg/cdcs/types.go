package cdcs

import "time"

// DataRecord is a typed snapshot of a curated XML record.
type DataRecord struct {
	ID                   ID        `mapstructure:"id" json:"id"`
	Template             ID        `mapstructure:"template" json:"template"`
	TemplateTitle        string    `mapstructure:"template_title" json:"template_title,omitempty"`
	Workspace            ID        `mapstructure:"workspace" json:"workspace"`
	UserID               string    `mapstructure:"user_id" json:"user_id"`
	Title                string    `mapstructure:"title" json:"title"`
	XMLContent           string    `mapstructure:"xml_content" json:"xml_content"`
	CreationDate         time.Time `mapstructure:"creation_date" json:"creation_date"`
	LastModificationDate time.Time `mapstructure:"last_modification_date" json:"last_modification_date"`
	LastChangeDate       time.Time `mapstructure:"last_change_date" json:"last_change_date"`
}

// Template is one version of a schema.
type Template struct {
	ID       ID     `mapstructure:"id" json:"id"`
	Title    string `mapstructure:"title" json:"title,omitempty"`
	User     string `mapstructure:"user" json:"user"`
	Filename string `mapstructure:"filename" json:"filename"`
	Content  string `mapstructure:"content" json:"content"`
	Hash     string `mapstructure:"_hash" json:"_hash"`
}

// TemplateManager groups the versions of one template under a title.
type TemplateManager struct {
	ID               ID     `mapstructure:"id" json:"id"`
	Title            string `mapstructure:"title" json:"title"`
	User             string `mapstructure:"user" json:"user"`
	Versions         []ID   `mapstructure:"versions" json:"versions"`
	Current          ID     `mapstructure:"current" json:"current"`
	IsDisabled       bool   `mapstructure:"is_disabled" json:"is_disabled"`
	DisabledVersions []ID   `mapstructure:"disabled_versions" json:"disabled_versions"`
}

// VersionID returns the template id of a 1-based version index.
func (m *TemplateManager) VersionID(version int) (ID, error) {
	if version < 1 || version > len(m.Versions) {
		return ID{}, newError("VersionID", ErrRange, "version %d outside 1..%d for template %q", version, len(m.Versions), m.Title)
	}
	return m.Versions[version-1], nil
}

// VersionIndex returns the 1-based index of a template id, or 0.
func (m *TemplateManager) VersionIndex(id ID) int {
	for i, v := range m.Versions {
		if v.Equal(id) {
			return i + 1
		}
	}
	return 0
}

// IsVersionDisabled reports whether the given template id is disabled.
func (m *TemplateManager) IsVersionDisabled(id ID) bool {
	for _, v := range m.DisabledVersions {
		if v.Equal(id) {
			return true
		}
	}
	return false
}

// Blob is an uploaded binary file.
type Blob struct {
	ID        ID     `mapstructure:"id" json:"id"`
	Filename  string `mapstructure:"filename" json:"filename"`
	Handle    string `mapstructure:"handle" json:"handle"`
	UserID    string `mapstructure:"user_id" json:"user_id"`
	Workspace ID     `mapstructure:"workspace" json:"workspace"`
}

// Workspace groups records and blobs for access control.
type Workspace struct {
	ID       ID     `mapstructure:"id" json:"id"`
	Title    string `mapstructure:"title" json:"title"`
	Owner    string `mapstructure:"owner" json:"owner"`
	IsPublic bool   `mapstructure:"is_public" json:"is_public"`
	IsGlobal bool   `mapstructure:"is_global" json:"is_global"`
}

// XSLT is a stored transformation.
type XSLT struct {
	ID       ID     `mapstructure:"id" json:"id"`
	Name     string `mapstructure:"name" json:"name"`
	Filename string `mapstructure:"filename" json:"filename"`
	Content  string `mapstructure:"content" json:"content"`
}

// PIDXPath locates the persistent identifier inside records of a template.
type PIDXPath struct {
	ID       ID     `mapstructure:"id" json:"id"`
	Template ID     `mapstructure:"template" json:"template"`
	XPath    string `mapstructure:"xpath" json:"xpath"`
}
