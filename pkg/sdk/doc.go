// Package schemedex provides a Go client for the schemedex HTTP API:
// ingesting a scheme dataset, semantic top-k retrieval, and the
// assistant endpoints (explain, resolve_url, enrich, chat).
//
// Basic usage:
//
//	client, err := schemedex.New("http://localhost:8000",
//		schemedex.WithAPIKey(os.Getenv("SCHEMEDEX_API_KEY")))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := client.Query(ctx, schemedex.QueryRequest{
//		Query: "income support for farmers",
//		TopK:  5,
//	})
//
// Errors carry typed codes; use errors.Is with the package sentinels:
//
//	if errors.Is(err, schemedex.ErrIndexNotReady) {
//		// trigger Ingest first
//	}
package schemedex
