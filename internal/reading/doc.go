// Package reading provides the core measurement types shared by the
// sensor client, the reconciler and the archive store.
//
// This package contains type definitions only. All other internal packages
// import reading; reading imports nothing internal.
package reading
