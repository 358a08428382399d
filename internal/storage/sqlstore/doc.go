// Package sqlstore persists sessions and permanent records in the SQL
// database (SQLite or PostgreSQL) through sqlx. Statements are written with
// "?" placeholders and rebound for the active driver.
//
// Every write is a single statement or a single transaction, and every call
// is retried once on transient driver errors.
package sqlstore
