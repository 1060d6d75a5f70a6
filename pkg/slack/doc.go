// Package slack implements the small subset of Slack's [Web API] and
// [Socket Mode] protocol that the onboarding bot needs: opening Socket
// Mode connections, acknowledging event envelopes, posting messages,
// and publishing [App Home] views built from [Block Kit] blocks.
//
// [Web API]: https://docs.slack.dev/apis/web-api
// [Socket Mode]: https://docs.slack.dev/apis/events-api/using-socket-mode
// [App Home]: https://docs.slack.dev/surfaces/app-home
// [Block Kit]: https://docs.slack.dev/block-kit
package slack
