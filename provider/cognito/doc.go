// Package cognito implements the external identity provider against an AWS
// Cognito user pool's hosted UI.
//
// Pass the Provider to access.NewAuthenticator; the application callback
// handler feeds the hosted-UI code into CompleteLogin before calling
// Authenticator.CompleteLoginIfPending.
package cognito
