package snapshot

// CSVFields renders a Row as the ordered field values matching
// CSVColumns, applying the §3 renames (as_role→role, resourcepk→pk) and
// dropping resourcegroup, the Go analogue of _convert_dict_csv.
func (row Row) CSVFields() []string {
	return []string{
		row.TransactionID,
		row.RequestID,
		row.Step,
		row.Host,
		row.Resource,
		row.Verb,
		row.ResourcePK,
		row.Date,
		row.UserID,
		row.AuthUserID,
		row.AsRole,
		row.CM,
		row.Payload,
	}
}
