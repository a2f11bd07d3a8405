// Package sources provides the resolver implementations shipped with
// typenv: the process environment, dotenv and JSON/YAML files, CLI
// arguments, HTTP endpoints, SQL tables, cloud secret stores (AWS Secrets
// Manager, AWS SSM Parameter Store, GCP Secret Manager, Azure Key Vault),
// the OS keyring, and the caching and file-watch wrappers.
//
// Every source satisfies resolver.Resolver; local sources additionally
// satisfy resolver.SyncResolver. Sources with structured payloads (JSON,
// YAML, cloud secrets holding JSON) flatten nested objects into
// SCREAMING_SNAKE keys: {"database": {"host": "x"}} becomes DATABASE_HOST.
// Null leaves are omitted, never written as empty strings.
package sources
