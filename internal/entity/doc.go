// Package entity defines the searchable record kinds and the registry that
// maps each kind to its table, its queryable columns, and its join key in the
// relations table.
//
// The registry is built once at process start from an explicit Config and is
// read-only afterwards, so a single *Registry may be shared by concurrent
// compilations.
//
// Entity types have two spellings:
//
//	id type (requests, scopes)   model name (cross-entity filter ids)
//	--------------------------   -----------------------------------
//	individuals                  Individual
//	biosamples                   Biosample
//	runs                         Run
//	analyses                     Analysis
//	datasets                     Dataset
//	cohorts                      Cohort
//
// Configuration comes from DefaultConfig, a CUE file (LoadConfig), or the
// ATHENA_* environment variables (ApplyEnv). The compiler itself never reads
// the environment.
package entity
