// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Vaultbot is a Telegram bot that hands out files from a private vault channel.

Users arrive with a deep link containing an access token. Vaultbot exchanges
the token with an external verification service for a file or alias name,
asks the user to join the public channel, and once membership is confirmed
delivers the matching files. Every delivered file is scheduled for deletion
after a configurable delay, and a background janitor purges everything the
bot has sent once the bot has been idle for long enough.

Two small JSON tables hold all persistent state: files.json maps file names
to Telegram file identifiers, and aliases.json maps alias names to lists of
file name patterns. Both live in the state directory and are mirrored to a
GitHub Gist when GH_TOKEN and GIST_ID are set, so state survives redeploys
on hosts with ephemeral disks.

New files posted to the vault channel are registered automatically under
their file name, with decorative symbols stripped.

# Usage

	$ vaultbot [flags...]

Configuration comes from environment variables:

	TG_TOKEN          Telegram Bot API token (required).
	TG_SECRET         Secret token validated on incoming webhook updates.
	HOST              Public host used to register the webhook (required).
	ADMIN_ID          Telegram user ID allowed to manage the tables.
	VAULT_CHANNEL_ID  Chat ID of the private channel holding the files.
	CHANNEL_USERNAME  Public channel users must join before delivery.
	VERIFY_URL        Base URL of the token verification service.
	GH_TOKEN          GitHub token for the gist mirror (optional).
	GIST_ID           ID of the gist holding mirrored tables (optional).
	STATE_DIRECTORY   Directory for files.json and aliases.json.

# Admin commands

	/add <name> <file_id>             Register a file manually.
	/list                             List registered files.
	/remove <name>                    Remove a file.
	/clearall                         Drop the whole file table.
	/addalias [Name] <p1, p2, ...>    Create an alias from name patterns.
	/listaliases                      List aliases.
	/removealias <name>               Remove an alias.
	/debugjson                        Dump both tables.
*/
package main
