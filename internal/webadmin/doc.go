// ABOUTME: Package webadmin is the operator-facing management console
// ABOUTME: User administration, settings editing, and live announcements

// Package webadmin serves the HTML admin panel under /admin. It
// authenticates against the single configured admin password, keeps
// sessions in memory, and requires a CSRF token on every mutating form.
//
// The panel covers the day-to-day support operations: resetting a
// player's password, disabling or deleting accounts, editing the
// public settings, and broadcasting an announcement to every client
// currently connected to the realtime channel.
package webadmin
