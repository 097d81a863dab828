// Package services holds the academy's business logic.
//
// Services defined in this package:
// - StudentIDAllocator: Issues per-branch sequential student IDs
// - BranchRegistry: Resolves branch keys and formats student IDs
// - AuthService: Handles signup, login and profiles
// - StudentService: Lists branches, the student roster and branch summaries
package services
