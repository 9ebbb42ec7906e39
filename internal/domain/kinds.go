package domain

import (
	"github.com/cockroachdb/errors"
)

// EntityKind names one ingested record category. Values double as URL slugs.
type EntityKind string

const (
	KindParticipants      EntityKind = "participants"
	KindPriorityPass      EntityKind = "priority-pass"
	KindScreenshotPending EntityKind = "screenshot-pending"
	KindSubmissions       EntityKind = "submissions"
)

// ErrUnknownKind is returned when a slug does not name a registered entity kind.
var ErrUnknownKind = errors.New("unknown entity kind")

// Shared column definitions. Export headers vary between form tools, so every spelling
// seen in the wild is listed explicitly.
var (
	yatriIDField = FieldDefinition{Name: "yatri_id", Type: FieldTypeString, Aliases: []string{
		"Yatri Id", "Yatri ID", "Yatri id", "YatriId", "YatriID", "YATRI ID", "yatriId", "Yatri_ID", "Yatri No",
	}}
	firstNameField = FieldDefinition{Name: "first_name", Type: FieldTypeString, Aliases: []string{
		"First Name", "First name", "FirstName", "first name", "FIRST NAME", "firstName",
	}}
	lastNameField = FieldDefinition{Name: "last_name", Type: FieldTypeString, Aliases: []string{
		"Last Name", "Last name", "LastName", "last name", "LAST NAME", "lastName", "Surname",
	}}
	emailField = FieldDefinition{Name: "email", Type: FieldTypeString, Aliases: []string{
		"Email", "E-mail", "Email Address", "Email address", "Email ID", "Email Id", "EMAIL", "email address",
	}}
	mobileField = FieldDefinition{Name: "mobile_no", Type: FieldTypeString, Aliases: []string{
		"Mobile No", "Mobile No.", "Mobile Number", "Mobile number", "Mobile", "mobile",
		"Phone", "Phone Number", "Phone No", "phone", "Contact No", "Contact Number",
	}}
	genderField = FieldDefinition{Name: "gender", Type: FieldTypeEnum, Aliases: []string{
		"Gender", "GENDER", "Sex",
	}}
	dateOfBirthField = FieldDefinition{Name: "date_of_birth", Type: FieldTypeDate, Aliases: []string{
		"Date of Birth", "Date Of Birth", "DOB", "Dob", "dob", "Birth Date", "DateOfBirth",
	}}
	cityField = FieldDefinition{Name: "city", Type: FieldTypeString, Aliases: []string{"City", "City/Town"}}
	stateField = FieldDefinition{Name: "state", Type: FieldTypeString, Aliases: []string{"State", "State/UT"}}
	statusField = FieldDefinition{Name: "status", Type: FieldTypeEnum, Aliases: []string{
		"Status", "STATUS",
	}}
	transactionField = FieldDefinition{Name: "transaction_id", Type: FieldTypeString, Aliases: []string{
		"Transaction ID", "Transaction Id", "Transaction id", "UTR", "UTR No", "UTR Number",
	}}
	submissionTimeField = FieldDefinition{Name: "submission_time", Type: FieldTypeTimestamp, Aliases: []string{
		"Submission Time", "Submitted At", "Submitted at", "Timestamp",
	}}
	remarksField = FieldDefinition{Name: "remarks", Type: FieldTypeString, Aliases: []string{
		"Remarks", "Notes", "Comments",
	}}
)

var participantsSpec = MustFieldSpec(FieldSpec{
	Kind:     KindParticipants,
	Table:    "participants",
	Singular: "Participant",
	Plural:   "participants",
	ListKey:  "participants",
	Fields: []FieldDefinition{
		yatriIDField,
		firstNameField,
		lastNameField,
		emailField,
		mobileField,
		{Name: "whatsapp_no", Type: FieldTypeString, Aliases: []string{"WhatsApp No", "Whatsapp No", "WhatsApp Number", "Whatsapp Number"}},
		genderField,
		dateOfBirthField,
		{Name: "age", Type: FieldTypeNumber, Aliases: []string{"Age"}},
		cityField,
		stateField,
		{Name: "country", Type: FieldTypeString, Aliases: []string{"Country"}},
		{Name: "address", Type: FieldTypeString, Aliases: []string{"Address", "Full Address"}},
		{Name: "pincode", Type: FieldTypeString, Aliases: []string{"Pincode", "Pin Code", "PIN Code", "Zip", "Zip Code"}},
		{Name: "occupation", Type: FieldTypeString, Aliases: []string{"Occupation", "Profession"}},
		{Name: "organization", Type: FieldTypeString, Aliases: []string{"Organization", "Organisation", "College", "College/Organization"}},
		{Name: "annual_income", Type: FieldTypeNumber, Aliases: []string{"Annual Income", "Annual income", "Income"}},
		{Name: "registration_date", Type: FieldTypeTimestamp, Aliases: []string{"Registration Date", "Registered On", "Registration Time", "Timestamp"}},
		{Name: "payment_status", Type: FieldTypeEnum, Aliases: []string{"Payment Status", "Payment status"}},
		{Name: "amount_paid", Type: FieldTypeNumber, Aliases: []string{"Amount Paid", "Paid Amount", "Amount"}},
		{Name: "status", Type: FieldTypeEnum, Aliases: []string{"Status", "Registration Status"}},
		remarksField,
	},
	Identifiers: []string{"yatri_id"},
	Years:       YearWindow{Min: 1901, Max: 2099},
})

var priorityPassSpec = MustFieldSpec(FieldSpec{
	Kind:     KindPriorityPass,
	Table:    "priority_pass_entries",
	Singular: "Priority pass entry",
	Plural:   "priority pass entries",
	ListKey:  "priorityPassEntries",
	Fields: []FieldDefinition{
		yatriIDField,
		firstNameField,
		lastNameField,
		emailField,
		mobileField,
		genderField,
		{Name: "pass_type", Type: FieldTypeEnum, Aliases: []string{"Pass Type", "Priority Pass Type", "Type"}},
		{Name: "amount", Type: FieldTypeNumber, Aliases: []string{"Amount", "Amount Paid", "Pass Amount"}},
		transactionField,
		{Name: "payment_date", Type: FieldTypeDate, Aliases: []string{"Payment Date", "Date of Payment"}},
		statusField,
		submissionTimeField,
		remarksField,
	},
	Identifiers: []string{"yatri_id"},
	Required:    []string{"first_name", "last_name", "email"},
})

var screenshotPendingSpec = MustFieldSpec(FieldSpec{
	Kind:     KindScreenshotPending,
	Table:    "screenshot_pending_entries",
	Singular: "Screenshot pending entry",
	Plural:   "screenshot pending entries",
	ListKey:  "screenshotPendingEntries",
	Fields: []FieldDefinition{
		yatriIDField,
		firstNameField,
		lastNameField,
		emailField,
		mobileField,
		{Name: "amount", Type: FieldTypeNumber, Aliases: []string{"Amount", "Amount Paid"}},
		transactionField,
		{Name: "screenshot_url", Type: FieldTypeString, Aliases: []string{"Screenshot", "Screenshot URL", "Screenshot Link", "Payment Screenshot"}},
		submissionTimeField,
		statusField,
		remarksField,
	},
	Identifiers: []string{"yatri_id"},
})

var submissionsSpec = MustFieldSpec(FieldSpec{
	Kind:     KindSubmissions,
	Table:    "submissions",
	Singular: "Submission",
	Plural:   "submissions",
	ListKey:  "submissions",
	Fields: []FieldDefinition{
		{Name: "submission_id", Type: FieldTypeString, Aliases: []string{"Submission ID", "Submission Id", "SubmissionId", "Response ID"}},
		yatriIDField,
		{Name: "application_id", Type: FieldTypeString, Aliases: []string{"Application ID", "Application Id", "ApplicationId", "Application No"}},
		{Name: "name", Type: FieldTypeString, Aliases: []string{"Name", "Full Name"}},
		firstNameField,
		lastNameField,
		emailField,
		mobileField,
		genderField,
		dateOfBirthField,
		cityField,
		stateField,
		{Name: "form_name", Type: FieldTypeString, Aliases: []string{"Form", "Form Name"}},
		{Name: "score", Type: FieldTypeNumber, Aliases: []string{"Score", "Total Score", "Marks"}},
		statusField,
		{Name: "submitted_at", Type: FieldTypeTimestamp, Aliases: []string{"Submitted At", "Submission Date", "Submission Time", "Timestamp"}},
		remarksField,
	},
	Identifiers: []string{"submission_id", "yatri_id", "application_id"},
})

var registry = map[EntityKind]FieldSpec{
	KindParticipants:      participantsSpec,
	KindPriorityPass:      priorityPassSpec,
	KindScreenshotPending: screenshotPendingSpec,
	KindSubmissions:       submissionsSpec,
}

// Kinds lists the registered entity kinds in a stable order.
func Kinds() []EntityKind {
	return []EntityKind{KindParticipants, KindPriorityPass, KindScreenshotPending, KindSubmissions}
}

// SpecFor returns the field spec of a registered kind.
func SpecFor(kind EntityKind) (FieldSpec, error) {
	spec, ok := registry[kind]
	if !ok {
		return FieldSpec{}, errors.Wrapf(ErrUnknownKind, "%q", string(kind))
	}
	return spec, nil
}

// Specs returns every registered field spec in Kinds order.
func Specs() []FieldSpec {
	kinds := Kinds()
	specs := make([]FieldSpec, len(kinds))
	for i, kind := range kinds {
		specs[i] = registry[kind]
	}
	return specs
}
