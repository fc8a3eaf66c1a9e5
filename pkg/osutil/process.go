// Package osutil holds the process helpers used to run generated scripts.
package osutil
