// Package remote runs probe commands on a remote VPS over SSH.
//
// Target implements the probe package's Runner and FileReader capabilities:
// commands run in one-off SSH sessions, and /proc files are read through
// SFTP so the load probe works identically against local and remote hosts.
package remote
