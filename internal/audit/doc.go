// Package audit records operator actions in the audit_logs table: PLC
// writes, logins and view changes. Entries are written on the request
// path and read back by administrators through the API.
package audit
