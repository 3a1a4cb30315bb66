package models

// Allowed license document types.
const (
	MimePDF = "application/pdf"
	MimePNG = "image/png"
)

// IsAllowedLicenseType reports whether mime may be stored as a license.
func IsAllowedLicenseType(mime string) bool {
	return mime == MimePDF || mime == MimePNG
}

// License is a stored compliance document.
type License struct {
	ID           int64  `json:"id" db:"id"`
	FileName     string `json:"file_name" db:"file_name"`
	FileData     []byte `json:"-" db:"file_data"`
	FileType     string `json:"file_type" db:"file_type"`
	ExpiryDate   Date   `json:"expiry_date" db:"expiry_date"`
	DepartmentID int64  `json:"department_id" db:"department_id"`
}

// LicenseSummary is the metadata projection used by list endpoints.
type LicenseSummary struct {
	ID             int64   `json:"id" db:"id"`
	FileName       string  `json:"file_name" db:"file_name"`
	FileType       string  `json:"file_type" db:"file_type"`
	DepartmentID   int64   `json:"department_id" db:"department_id"`
	DepartmentName *string `json:"department_name" db:"department_name"`
	ExpiryDate     Date    `json:"expiry_date" db:"expiry_date"`
}

// LicenseFile is the document payload streamed back to clients.
type LicenseFile struct {
	FileName string `db:"file_name"`
	FileType string `db:"file_type"`
	FileData []byte `db:"file_data"`
}

// FileUpload is a document as posted by clients, base64 encoded.
type FileUpload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// LicenseDocument is a decoded document ready to store.
type LicenseDocument struct {
	Name string
	Type string
	Data []byte
}

// NewLicense is the upload input.
type NewLicense struct {
	Document     LicenseDocument
	ExpiryDate   Date
	DepartmentID int64
}

// LicensePatch lists the updatable license columns.
type LicensePatch struct {
	ExpiryDate   *Date
	DepartmentID *int64
	Document     *LicenseDocument
}

// Empty reports whether the patch changes nothing.
func (p LicensePatch) Empty() bool {
	return p.ExpiryDate == nil && p.DepartmentID == nil && p.Document == nil
}

// ExpiringGroup is the set of soon-to-expire licenses owned by one department.
type ExpiringGroup struct {
	DepartmentID   int64
	DepartmentName string
	Licenses       []LicenseSummary
}

// GroupByDepartment groups licenses by department, preserving first-seen order.
func GroupByDepartment(licenses []LicenseSummary) []ExpiringGroup {
	var groups []ExpiringGroup
	index := make(map[int64]int)
	for _, l := range licenses {
		i, ok := index[l.DepartmentID]
		if !ok {
			name := ""
			if l.DepartmentName != nil {
				name = *l.DepartmentName
			}
			groups = append(groups, ExpiringGroup{DepartmentID: l.DepartmentID, DepartmentName: name})
			i = len(groups) - 1
			index[l.DepartmentID] = i
		}
		groups[i].Licenses = append(groups[i].Licenses, l)
	}
	return groups
}
