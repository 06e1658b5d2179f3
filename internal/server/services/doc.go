// Package services contains the server-side use cases of selva: users,
// base and external profiles, integrations, stored files and the resolved
// profile view served to integrations.
//
// Services receive the *sql.DB and a repomanager.RepositoryManager and bind
// repositories to either the pool or the transaction of the current
// operation. Everything written by one operation, file rows included,
// commits or rolls back together.
package services
