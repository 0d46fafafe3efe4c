// Package github synchronizes ISO week labels across GitHub repositories.
//
// The package includes:
// - Client, an APIClient over the GitHub REST and GraphQL APIs with retry and rate limiting
// - Enumerator, which lists the repositories of a Scope page by page
// - LabelReconciler, which creates or updates one label on one repository
// - MultiReconciler, which runs the reconciler over every (repository, label) pair
// - BulkCreator, which creates labels once at organization level
package github
