/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

import "fmt"

// Mention returns the discord mention markup for a user id.
func Mention(id string) string {
	return fmt.Sprintf("<@%v>", id)
}

// FormatWinRate renders a win percentage for display, e.g. "62.5%".
func FormatWinRate(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
