package crm

// The remote schema for referrals is the custom Referral__c object; field
// names follow the org's __c suffix convention. This is the one place the
// local-to-remote field table lives.
const (
	referralObject      = "Referral__c"
	referralNumberField = "Referral_Number__c"
)

func referralFields(rec ReferralRecord) map[string]any {
	fields := map[string]any{
		referralNumberField:    rec.ReferralNumber,
		"Patient_Name__c":      rec.PatientName,
		"Condition__c":         rec.Condition,
		"Urgency__c":           rec.Urgency,
		"Status__c":            rec.Status,
		"Clinical_Notes__c":    rec.ClinicalNotes,
		"Optician_Practice__c": rec.PracticeName,
		"Source__c":            "Patient Management System",
	}
	if !rec.DateReceived.IsZero() {
		fields["Date_Received__c"] = rec.DateReceived.Format("2006-01-02")
	}
	return fields
}
