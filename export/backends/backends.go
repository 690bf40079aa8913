package backends

import (
	// initialise all backends.
	_ "github.com/sveniu/sslclient-renew/export/backends/aws-s3"
	_ "github.com/sveniu/sslclient-renew/export/backends/aws-sns"
)
