// Package model holds the types shared by the step engine and its options:
// step descriptions, typed step outputs and the hook interface every pipeline
// option implements.
package model
