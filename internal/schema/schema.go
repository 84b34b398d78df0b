// Package schema declares the fixed registration field set. The declared
// order is the order the assistant asks for fields and the order missing
// prompts are reported in; code elsewhere must not reorder it.
package schema

// DateFormat is the only accepted layout for extracted date values.
const DateFormat = "2006-01-02"

type FieldKind string

const (
	KindText    FieldKind = "text"
	KindDate    FieldKind = "date"
	KindInteger FieldKind = "integer"
	KindEnum    FieldKind = "enum"
)

// FieldSpec is one required registration field. Path is the dotted key used
// in stored field_values and in extraction output.
type FieldSpec struct {
	Path   string
	Prompt string
	Kind   FieldKind
	Enum   []string
}

// Fields is the registration field list, in asking order.
var Fields = []FieldSpec{
	{Path: "applicant.role", Prompt: "Your role in the business (e.g. business owner, director)", Kind: KindText},
	{Path: "applicant.first_name", Prompt: "Your first name", Kind: KindText},
	{Path: "applicant.middle_name", Prompt: "Your middle name", Kind: KindText},
	{Path: "applicant.surname", Prompt: "Your surname", Kind: KindText},
	{Path: "applicant.date_of_birth", Prompt: "Your date of birth", Kind: KindDate},
	{Path: "applicant.gender", Prompt: "Your gender", Kind: KindEnum, Enum: []string{"Male", "Female"}},
	{Path: "contact.phone_number", Prompt: "Your phone number", Kind: KindText},
	{Path: "contact.email_address", Prompt: "Your email address", Kind: KindText},
	{Path: "address.residential_address", Prompt: "Your residential address", Kind: KindText},
	{Path: "address.city", Prompt: "Your city", Kind: KindText},
	{Path: "address.local_government", Prompt: "Your local government area", Kind: KindText},
	{Path: "address.state", Prompt: "Your state", Kind: KindText},
	{Path: "identity.identification_number", Prompt: "Your identification number (NIN, passport or driver's licence)", Kind: KindText},
	{Path: "shares.number_of_shares", Prompt: "The number of shares you will hold", Kind: KindInteger},
}

// FieldByPath returns the field definition for a dotted path.
func FieldByPath(path string) (FieldSpec, bool) {
	for _, f := range Fields {
		if f.Path == path {
			return f, true
		}
	}
	return FieldSpec{}, false
}

type DocumentKind string

const (
	DocIdentityNumberProof DocumentKind = "identity_number_proof"
	DocPortraitPhoto       DocumentKind = "portrait_photo"
	DocSignatureImage      DocumentKind = "signature_image"
)

// DocumentSpec is one required supporting document.
type DocumentSpec struct {
	Kind   DocumentKind
	Prompt string
}

// Documents is the required document list, in asking order. Document prompts
// always follow field prompts in missing-item output.
var Documents = []DocumentSpec{
	{Kind: DocIdentityNumberProof, Prompt: "An upload of your means of identification (the document carrying your identification number)"},
	{Kind: DocPortraitPhoto, Prompt: "An upload of your passport photograph"},
	{Kind: DocSignatureImage, Prompt: "An upload of your signature"},
}

// ValidDocumentKind reports whether kind is in the accepted upload vocabulary.
func ValidDocumentKind(kind string) bool {
	for _, d := range Documents {
		if string(d.Kind) == kind {
			return true
		}
	}
	return false
}
