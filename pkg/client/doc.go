// Package client is a Go client for the agentmart listing search API.
//
//	c, _ := client.New("https://api.agentmart.dev",
//	    client.WithAPIKey(os.Getenv("AGENTMART_API_KEY")),
//	    client.WithTimeout(10*time.Second),
//	)
//	page, err := c.Search(ctx, client.SearchParams{Query: "bot", Limit: 2})
//	if err == nil && page.Degraded {
//	    // results came from a fallback tier, or there were none at all
//	}
//
// A degraded page is not an error: the server keeps answering with fewer
// fields, or with an empty list, while its backing store is struggling.
// Transport failures are returned as *RequestError, non-2xx answers as
// *APIError; match them with errors.Is against the sentinels below.
package client
