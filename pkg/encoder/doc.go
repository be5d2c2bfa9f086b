// Package encoder provides Encoder implementations backed by external
// services and storage.
//
// OllamaEncoder calls a local Ollama server. SQLiteCache wraps any encoder
// and persists its output in a SQLite database so that restarting a router
// does not re-encode unchanged catalogs.
//
//	base := encoder.NewOllamaEncoder(encoder.OllamaConfig{Model: "nomic-embed-text"})
//	cache, err := encoder.NewSQLiteCache(base, encoder.SQLiteCacheConfig{Path: "embeddings.db", Namespace: "nomic-embed-text"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cache.Init(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer cache.Close()
//
//	router, err := semanticrouter.New(ctx, cache, routes)
package encoder
