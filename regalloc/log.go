// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("backend.regalloc")
