/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

// IsAuthority treats members holding Administrator or Manage Messages in
// the channel as moderators for confirmation, winner selection and undo.
func (b *Bot) IsAuthority(ctx context.Context, identity, scope string) bool {
	perms, err := b.dg.UserChannelPermissions(identity, scope)
	if err != nil {
		log.Printf("discordbot.auth: failed to fetch permissions for %v in %v: %v",
			identity, scope, err)
		return false
	}
	const modPerms = discordgo.PermissionAdministrator |
		discordgo.PermissionManageMessages
	return perms&modPerms != 0
}
