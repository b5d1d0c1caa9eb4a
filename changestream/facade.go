// Copyright (C) The Project Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package changestream

import (
	"context"

	"github.com/dociq/changestream/changestream/options"
	"github.com/dociq/changestream/internal/logger"
	"github.com/dociq/changestream/x/bsoncore"
	"github.com/dociq/changestream/x/driver"
)

// WatchCollection opens a change stream scoped to a single collection. The
// aggregate command's target is the collection name (spec.md §4.1). log
// may be nil to disable command/resume logging.
func WatchCollection(
	ctx context.Context,
	opener driver.CursorOpener,
	selector driver.ServerSelector,
	session driver.Session,
	ns driver.Namespace,
	pipeline bsoncore.Array,
	opts *options.ChangeStreamOptions,
	log *logger.Logger,
) (*ChangeStream, error) {
	args := options.MergeChangeStreamOptions(opts)
	return openChangeStream(ctx, opener, selector, session, ns, collectionTarget(ns.Collection), pipeline, args, log)
}

// WatchDatabase opens a change stream scoped to every collection in a
// database. The aggregate command's target is the integer 1, run against
// ns.DB (spec.md §4.1).
func WatchDatabase(
	ctx context.Context,
	opener driver.CursorOpener,
	selector driver.ServerSelector,
	session driver.Session,
	ns driver.Namespace,
	pipeline bsoncore.Array,
	opts *options.ChangeStreamOptions,
	log *logger.Logger,
) (*ChangeStream, error) {
	args := options.MergeChangeStreamOptions(opts)
	dbNs := driver.Namespace{DB: ns.DB}
	return openChangeStream(ctx, opener, selector, session, dbNs, wholeTarget(), pipeline, args, log)
}

// WatchDeployment opens a change stream scoped to every database in the
// deployment. The aggregate command's target is the integer 1, run against
// the admin database (spec.md §4.1).
func WatchDeployment(
	ctx context.Context,
	opener driver.CursorOpener,
	selector driver.ServerSelector,
	session driver.Session,
	pipeline bsoncore.Array,
	opts *options.ChangeStreamOptions,
	log *logger.Logger,
) (*ChangeStream, error) {
	args := options.MergeChangeStreamOptions(opts)
	adminNs := driver.Namespace{DB: "admin"}
	return openChangeStream(ctx, opener, selector, session, adminNs, wholeTarget(), pipeline, args, log)
}
