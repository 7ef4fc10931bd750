// Package cdcs is a client for the REST API of a Configurable Data Curation
// System (CDCS) server.
//
// # Overview
//
// The client turns typed calls into REST requests against records,
// templates, template managers, blobs, workspaces, XSLT transformations and
// PID settings, and returns results as a Table of Record rows. Rows can be
// decoded into typed snapshots (DataRecord, TemplateManager, Blob, ...).
//
// # Server generations
//
// Two API generations are supported and differ in id typing and paging:
//
//	generation  ids       list responses
//	v2          strings   bare JSON arrays
//	v3          integers  {count, next, previous, results} envelopes
//
// NewClient resolves the generation once. An explicit Config.Version wins;
// otherwise GET /rest/core-settings/ is probed. A core_version of X.Y.Z maps
// to generation X+1.Y.Z, a 401 means 3.0.0 and a 404 means 2.0.0.
//
// # Identity resolution
//
// Single-entity accessors (Record, Template, Blob, Workspace, ...) require
// exactly one match and fail with ErrNotFound or ErrAmbiguousMatch.
// References are built with ByID, ByName or ByEntity. Supplying mutually
// exclusive parameters fails with ErrConflict.
//
// # Usage
//
//	client, err := cdcs.NewClient(ctx, &cdcs.Config{Host: "https://cdcs.example.org"},
//	    cdcs.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	records, err := client.Query(ctx, cdcs.QueryCriteria{
//	    Templates: []cdcs.EntityRef{cdcs.ByName("first")},
//	})
//
//	ws, err := client.GlobalWorkspace(ctx)
//	result, err := client.AssignRecords(ctx, cdcs.ByEntity(ws), cdcs.RecordTargets{Records: records})
//	if err := result.Err(); err != nil {
//	    // some assignments failed; result.Outcomes has the details
//	}
//
// # Errors
//
// All errors wrap one of ErrFormat, ErrRange, ErrConflict, ErrNotFound,
// ErrAmbiguousMatch, ErrProtocolInvariant, ErrTransport or ErrType and can be
// classified with errors.Is. Unexpected HTTP statuses surface as *StatusError.
// Nothing is retried.
package cdcs
