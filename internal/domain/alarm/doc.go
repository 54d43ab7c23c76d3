// Package alarm contains the domain record of a raised warning.
//
// An Episode captures which signal warned, when its condition started, when
// the alarm fired and when it cleared.
package alarm
