// Package api provides typed wrappers for the y-ui panel resources.
//
// # Overview
//
// Every service in this package is a thin layer over a [Caller], normally a
// *transport.Client. Services build the relative path and query, send the
// request and decode the envelope data into the model types defined here.
// They hold no session state: authorization, 401 handling and error
// notification all happen in the transport.
//
// # Key Components
//
//   - [API]: bundle of all resource services sharing one Caller
//   - [Page]: the {list, total, page, page_size} shape of list endpoints
//   - [ListOptions]: pagination with the panel's defaults (page 1, 20 rows)
//
// # Request Flow
//
//	Service method → Caller.Call → panel → envelope → model
//
// # Adding New Endpoints
//
//  1. Add the model (or request body) to types.go
//  2. Add a method on the relevant service using list, get or send
//  3. Add a test against testutil.Panel asserting method, path and query
package api
