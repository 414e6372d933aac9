// Copyright 2026 The gdrive-access-sync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package gdrive-access-sync keeps the sharing permissions on a set of Google Drive course files in line with a
roster of courses, instructors and students stored in a SQLite database.

gdrive-access-sync can be used from the command line but is really intended to be run from a cron job: each
run loads the roster, lists the current permissions on every course file, computes the grants and revocations
needed and applies them with bounded concurrency, retrying rate-limited calls with exponential backoff.

gdrive-access-sync supports the following commands:

  - sync (default), to grant and revoke permissions so that Google Drive matches the roster
  - compare, to list the changes a sync would make without applying them
  - export, to write the roster (or current Google Drive) permissions to a TSV file
  - protect, to restrict copying and downloading of course presentation files
  - authorise, to authorise access to Google Drive and Google Sheets with an OAuth client secret
  - init-db, to create the roster database tables and load mock data
  - version, to display the current version
*/
package gdrivesync
