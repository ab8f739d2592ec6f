package upgrade

// RequiredSchemaVersion is the schema version this binary expects.
// Bump it together with every new file in internal/store/sqlstore/migrations.
const RequiredSchemaVersion uint = 1
