package bundle

import "errors"

var errAnonymousNoAge = errors.New("bundle: anonymous source (creation timestamp 0) with no bundle-age block; expiration undefined")
