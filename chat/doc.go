// Package chat connects the question grabber to Twitch IRC.
//
// It adapts gempir/go-twitch-irc callbacks onto the grab.Grabber producer
// surface:
//   - PRIVMSG        -> OnMessage (after folding badge state into the
//     channel directory, so classification sees moderator/subscriber status)
//   - USERNOTICE     -> OnUserSubscribed for sub/resub/gift notices
//   - NOTICE         -> OnStatus
//   - subscriber/mod badges -> ChannelDirectory updates + OnInformSubscriber
//
// Credentials: the IRC client requires a bot username and a user OAuth token
// with chat:read scope.
//
// Reconnects follow the original policy: when the connection drops, we retry
// only while the stream is live (checked via Helix when client credentials
// are configured); otherwise we back off until the channel comes back up.
package chat
