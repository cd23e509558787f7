// Package api is the catalog backend's REST client.
//
// Every call goes through one request pipeline that:
//   - appends the current tenant as a query parameter unless it is empty or
//     "default";
//   - attaches "Authorization: Bearer <token>" when a token is available,
//     reading the token at request-build time;
//   - sends and accepts JSON;
//   - turns non-2xx responses and transport failures into *APIError.
//
// A 204 response yields an empty result without a decode attempt.
//
// # Errors
//
// *APIError unwraps to the sentinels in package common, so callers match with
// errors.Is(err, common.ErrNotFound), common.ErrValidation, common.ErrTransport
// or common.ErrUnauthorized. Any *APIError also matches common.ErrAPI.
package api
