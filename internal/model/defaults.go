package model

// Shared defaults used by the CLI and the pipeline packages.
const (
	DefaultCount       = 1
	DefaultInterval    = 1
	DefaultSubject     = "Mongodb_Performance"
	DefaultStoreTarget = "sysmon:mongo_perf"
	DefaultIndent      = 4
	DefaultStatBinary  = "mongostat"
	DefaultMongoPort   = 27017
	DefaultAuthDB      = "admin"
)
